package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/widget"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send [text...]",
	Short: "Post a message and optionally an attachment to a room",
	RunE:  runSend,
}

var sendFlags struct {
	api      string
	room     int
	username string
	userType string
	file     string
}

func init() {
	flags := sendCmd.Flags()
	flags.StringVar(&sendFlags.api, "api", defaultAPI, "base URL of the chat rooms")
	flags.IntVar(&sendFlags.room, "room", 1, "room the message is posted to")
	flags.StringVar(&sendFlags.username, "username", widget.DefaultUsername, "author of the message")
	flags.StringVar(&sendFlags.userType, "user-type", string(core.UserTypeUser), "user type of the author")
	flags.StringVarP(&sendFlags.file, "file", "f", "", "file posted as its own message after the text")
}

func runSend(cmd *cobra.Command, args []string) error {
	userType := core.UserType(sendFlags.userType)
	if !userType.Valid() {
		return fmt.Errorf("invalid user type %q", sendFlags.userType)
	}

	var inputs []core.MessageCreateInput
	if text := strings.TrimSpace(strings.Join(args, " ")); text != "" {
		inputs = append(inputs, core.MessageCreateInput{
			Username: sendFlags.username,
			UserType: userType,
			Message:  text,
			Nonce:    uuid.NewString(),
		})
	}
	if sendFlags.file != "" {
		a, err := widget.ReadAttachment(sendFlags.file)
		if err != nil {
			return err
		}
		inputs = append(inputs, a.Input(sendFlags.username, userType, uuid.NewString()))
	}
	if len(inputs) == 0 {
		return errors.New("nothing to send: pass a text or --file")
	}

	ctx, stop := signalContext()
	defer stop()

	client := widget.NewClient(sendFlags.api)
	for _, input := range inputs {
		msg, err := client.PostMessage(ctx, sendFlags.room, input)
		if err != nil {
			return fmt.Errorf("send to room %d: %w", sendFlags.room, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "sent #%d to room %d at %s\n", msg.UID, sendFlags.room, msg.Time)
	}
	return nil
}
