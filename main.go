package main

import (
	"fmt"
	"os"

	cmd "github.com/sdgen-ai/sdgen-server/cmd/sdgen"
)

func main() {
	rootCmd := cmd.GetRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
