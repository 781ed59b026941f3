package main

import (
	"os"

	"github.com/YoungY620/mrequires/cmd"
	"github.com/YoungY620/mrequires/internal"
)

var Version = "dev"

func main() {
	cmd.SetVersion(Version)
	if err := cmd.Execute(); err != nil {
		internal.LogError("%v", err)
		os.Exit(1)
	}
}
