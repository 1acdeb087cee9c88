package main

import (
	"github.com/humanbelnik/gamenight/internal/app"
	"github.com/humanbelnik/gamenight/internal/config"
)

func main() {
	app.Go(config.Load())
}
