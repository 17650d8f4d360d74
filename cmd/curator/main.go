package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	var root = &cobra.Command{
		Use:   "curator",
		Short: "Operator-approved content curation bot",
	}

	root.AddCommand(serveCMD(), tokenCMD())
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
