package main

import (
	"log"

	"github.com/MrSnakeDoc/tabgate/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ tabgate failed to start: %v", err)
	}
}
