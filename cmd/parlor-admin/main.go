package main

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/parlorchat/parlor/config"
	"github.com/parlorchat/parlor/globals"
	"github.com/parlorchat/parlor/persistence"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// A very simple CLI tool for the administration of parlor users, rooms and
// message history.

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
)

func main() {
	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}
	if globalConfig.LogLevel != "" {
		globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))
	}

	store, err := persistence.NewStore(globalConfig)
	if err != nil {
		panic(err)
	}
	if store == nil {
		panic("no persistence configured")
	}
	defer store.Close()

	printJSON := func(v interface{}) {
		out, err := json.Marshal(v)
		if err != nil {
			globals.AppLogger.Error("could not marshal", "error", err)
			return
		}
		fmt.Println(string(out))
	}

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show users, rooms or messages",
	}
	var cmdShowUsers = &cobra.Command{
		Use:   "users",
		Short: "Show users",
		Long:  `shows a listing of all stored users.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			users, err := store.Users()
			if err != nil {
				globals.AppLogger.Error("could not get users", "error", err)
				return
			}
			printJSON(users)
		},
	}
	var cmdShowUser = &cobra.Command{
		Use:   "user [friend code]",
		Short: "Show user",
		Long:  `show user prints the stored user with the given friend code.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			user, err := store.FindUserByCode(args[0])
			if err != nil {
				globals.AppLogger.Error("could not get user", "error", err)
				return
			}
			printJSON(user)
		},
	}
	var cmdShowRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show private rooms",
		Long:  `shows a listing of all stored private rooms.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			rooms, err := store.PrivateRooms()
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			printJSON(rooms)
		},
	}
	var cmdShowMessages = &cobra.Command{
		Use:   "messages [room id]",
		Short: "Show room messages",
		Long:  `show messages prints the stored message history of a room, oldest first.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			messages, err := store.MessagesByRoom(args[0], 0)
			if err != nil {
				globals.AppLogger.Error("could not get messages", "error", err)
				return
			}
			printJSON(messages)
		},
	}
	var cmdDelete = &cobra.Command{
		Use:   "delete",
		Short: "delete a user or room",
	}
	var cmdDeleteUser = &cobra.Command{
		Use:   "user [friend code]",
		Short: "Delete user",
		Long:  `delete user removes the stored user with the given friend code.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := store.DeleteUser(args[0]); err != nil {
				globals.AppLogger.Error("could not delete user", "error", err)
			}
		},
	}
	var cmdDeleteRoom = &cobra.Command{
		Use:   "room [room id]",
		Short: "Delete room",
		Long:  `delete room removes the stored private room with the given id.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := store.DeleteRoom(args[0]); err != nil {
				globals.AppLogger.Error("could not delete room", "error", err)
			}
		},
	}

	rootCmd := &cobra.Command{Use: "parlor-admin"}
	cmdShow.AddCommand(cmdShowUsers, cmdShowUser, cmdShowRooms, cmdShowMessages)
	cmdDelete.AddCommand(cmdDeleteUser, cmdDeleteRoom)
	rootCmd.AddCommand(cmdShow, cmdDelete)
	if err := rootCmd.Execute(); err != nil {
		globals.AppLogger.Error("command failed", "error", err)
	}
}
