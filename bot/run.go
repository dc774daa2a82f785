package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"beniyu-bot/utils"
)

func (b *Bot) Run() {
	if err := b.Session.Open(); err != nil {
		log.Fatalf("Error opening connection: %v", err)
	}

	log.Printf("Registering commands for guild %s...", b.Config.GuildID)
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, b.Config.GuildID, Commands())
	if err != nil {
		log.Printf("Cannot register commands for guild %s: %v", b.Config.GuildID, err)
	} else {
		b.RegisteredCommands = registered
	}

	log.Println("Running boot synchronization...")
	result, err := b.Syncer.Synchronize(context.Background())
	if err != nil {
		utils.LogError(b.Session, b.Config.LogChannelID, "Synchronization", "Boot", err.Error())
	} else if !result.CalendarOK {
		log.Println("Boot synchronization complete, calendar skipped (not authorized).")
	} else {
		log.Println("Boot synchronization complete.")
	}

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	utils.LogInfo(b.Session, b.Config.LogChannelID, "System", "Startup", "Bot has started successfully.")
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
}
