package main

import "github.com/WeWriteApp/pagechain/cmd"

func main() {
	cmd.Execute()
}
