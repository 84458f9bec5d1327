package main

import (
	"log"

	"github.com/zenpost/planner-bot/cmd/bot"
	"github.com/zenpost/planner-bot/internal/adapters/config"
	setupBot "github.com/zenpost/planner-bot/internal/adapters/controller/telegram/setup"

	_ "time/tzdata"
)

func main() {
	cfg := config.Get()
	b, err := bot.New(cfg)
	if err != nil {
		log.Panic(err)
	}

	setupBot.Setup(b)

	b.Start()
}
