package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/WeWriteApp/pagechain/internal/cache"
	"github.com/WeWriteApp/pagechain/internal/compress"
	"github.com/WeWriteApp/pagechain/internal/config"
	"github.com/WeWriteApp/pagechain/internal/jobs"
	"github.com/WeWriteApp/pagechain/internal/service"
	"github.com/WeWriteApp/pagechain/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Server represents the server
type Server struct {
	httpPort string
}

// NewServer creates a new server
func NewServer(httpPort string) *Server {
	return &Server{
		httpPort: httpPort,
	}
}

// Start starts the server
func (s *Server) Start() {
	if err := Start(s.httpPort); err != nil {
		logrus.Fatalf("error starting server: %v", err)
	}
}

// Start wires the stores, services and jobs, then serves HTTP until
// an interrupt arrives.
func Start(httpPort string) error {
	httpPort = ":" + httpPort

	cnf := config.LoadConfig()
	db := config.GetDb(cnf)

	listener, err := net.Listen("tcp", httpPort)
	if err != nil {
		return err
	}

	docStore := store.NewGormStore(db)
	if err := docStore.Migrate(); err != nil {
		return err
	}

	redis := cache.NewRedis(cnf.RedisAddr)
	graphs := cache.NewGraphCache(redis, cnf.GraphTTL)
	codec := compress.ForName(cnf.Compression)

	var notifier service.Notifier = service.NewNopEmitter()
	var search service.SearchSync = service.NewNopEmitter()
	if cnf.KafkaBrokers != "" {
		emitter, err := service.NewKafkaEmitter(cnf.KafkaBrokers)
		if err != nil {
			return err
		}
		defer emitter.Close()
		notifier = emitter
		search = emitter
	}

	backlinks := service.NewBacklinkService(docStore, notifier)
	versions := service.NewVersionService(docStore, codec, backlinks, graphs, search, service.NewOwnerAccessChecker())
	graphSvc := service.NewGraphService(docStore, graphs)
	propagate := service.NewPropagationService(docStore, graphs, redis)

	executor := jobs.NewTaskExecutor(nil, []jobs.CronJob{
		jobs.NewGraphWarmTask("@every 10m", docStore, graphSvc),
	})
	executor.Run()
	defer executor.Stop()

	h := NewHandler(versions, backlinks, graphSvc, propagate, cnf.GraphTTL)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // All origins are allowed
		AllowedMethods:   []string{"GET", "POST", "DELETE", "PUT"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-User-Id"},
		AllowCredentials: true,
	})

	restServer := &http.Server{
		Addr:    httpPort,
		Handler: c.Handler(NewRouter(h)),
	}

	// make sure to wait for the server to stop before exiting
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("starting http server on: ", httpPort)
		if err := restServer.Serve(listener); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("error starting http server: %v", err)
			}
		}
		logrus.Infof("http server stopped")
	}()

	time.Sleep(1 * time.Second)
	logrus.Infof("Press Ctrl+C to stop the server")

	// listen for interrupt signal to gracefully shut down the server
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT, unix.SIGTSTP)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	if err := restServer.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error stopping http server: %v", err)
	}

	wg.Wait()

	return nil
}
