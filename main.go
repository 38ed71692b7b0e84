/*
Copyright © 2026 mlee8150 <mlee8150@gmail.com>
*/

package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const (
	releaseVersion = "0.2.0"
)

func main() {
	log.SetFlags(0)

	if _, err := os.Stat(".env"); err == nil {
		cobra.CheckErr(godotenv.Load(".env"))
	}

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}
