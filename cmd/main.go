package main

import (
	"marketplace/internal/app"

	"github.com/sirupsen/logrus"
)

func main() {
	app, err := app.NewApp()
	if err != nil {
		logrus.Fatal(err)
	}

	app.Run()
}
