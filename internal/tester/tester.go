package tester

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/WeWriteApp/pagechain/internal/cache"
	"github.com/WeWriteApp/pagechain/internal/model"
	"github.com/alicebob/miniredis/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testPath = "../../.test/"
)

var (
	db *gorm.DB
	// Per-process, per-Setup file so test packages can run in parallel
	// against the shared .test directory, and so background writers from
	// a previous Setup's connection never touch the current file.
	dbFile  = fmt.Sprintf("%sdb/pagechain-%d.db", testPath, os.Getpid())
	setupID atomic.Int64
)

func Setup() {
	RemoveDBFile()
	dbFile = fmt.Sprintf("%sdb/pagechain-%d-%d.db", testPath, os.Getpid(), setupID.Add(1))

	_ = os.Setenv("ENV", "test")

	err := os.MkdirAll(testPath+"db", os.ModePerm)
	if err != nil {
		panic(err)
	}

	db, err = gorm.Open(sqlite.Open(dbFile), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	err = model.Migrate(db)
	if err != nil {
		panic(err)
	}
}

func TestDB() *gorm.DB {
	return db
}

func RemoveDBFile() {
	err := os.Remove(dbFile)
	if err != nil && !os.IsNotExist(err) {
		panic(err)
	}
}

// Redis spins up an in-process miniredis and returns a cache bound to
// it. The caller owns closing the miniredis.
func Redis() (*cache.Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}

	return cache.NewRedis(mr.Addr()), mr
}
