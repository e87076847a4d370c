package main

import (
	"github.com/sirupsen/logrus"

	"github.com/zippylabs/mercury/cmd"
)

func init() {
	logrus.SetLevel(logrus.InfoLevel)
}

func main() {
	cmd.Execute()
}
