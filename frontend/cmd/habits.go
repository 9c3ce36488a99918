package cmd

import (
	"fmt"
	"os"
	"strconv"

	ishell "github.com/abiosoft/ishell"
	"github.com/common-nighthawk/go-figure"
	"github.com/pkale/streakly/frontend/client"
	"github.com/pkale/streakly/lib/utils"
)

// guestCommands holds the commands available before signing in.
var guestCommands []Command

// userCommands holds the commands available only to signed-in users.
var userCommands []Command

// commonCommands holds the commands available regardless of login state.
var commonCommands []Command

// loggedIn tracks whether a user is currently signed in.
var loggedIn bool

// shell is the interactive shell instance users type commands into.
var shell *ishell.Shell

// Command defines a user command: a Name, a Desc shown by help, and the
// Func executed when the command is invoked.
type Command struct {
	Name string
	Desc string
	Func func(c *ishell.Context)
}

// InitCommands initializes the shell and sets up the guest, user and
// common command sets.
func InitCommands() {

	// Initialize shell
	shell = ishell.New()

	// If a usable token survives from a previous session, start signed in.
	if token, err := client.IsUserAuthenticated(); err == nil && token != "" {
		loggedIn = true
	}

	// Define the commands available to a guest user (not signed in)
	guestCommands = []Command{
		{
			Name: "signin",
			Desc: "Sign in to your account",
			Func: func(c *ishell.Context) {
				var username, password string
				for {
					c.Print("Enter Username: ")
					username = c.ReadLine()

					if len(username) > 1 {
						break
					}
					c.Println("Username must be longer than 1 character.")
				}

				for {
					c.Print("Enter Password: ")
					password = c.ReadPassword()

					if len(password) > 0 {
						break
					}
					c.Println("Password cannot be empty.")
				}

				err := client.SignIn(username, password)
				if err != nil {
					utils.PrintError(err.Error())
					return
				}
				loggedIn = true
				c.Println("Welcome, you are now signed in.")
				for _, command := range guestCommands {
					shell.DeleteCmd(command.Name)
				}
				addCommands(shell, userCommands)
			},
		},
		{
			Name: "signup",
			Desc: "Sign up for a new account",
			Func: func(c *ishell.Context) {
				var username, email, password string
				for {
					c.Print("Enter Username: ")
					username = c.ReadLine()

					if len(username) > 1 {
						break
					}
					c.Println("Username must be longer than 1 character.")
				}

				for {
					c.Print("Enter Email: ")
					email = c.ReadLine()

					if utils.ValidateEmail(email) {
						break
					}
					c.Println("Email is not valid.")
				}

				for {
					c.Print("Enter Password: ")
					password = c.ReadPassword()

					if utils.ValidatePassword(password) {
						c.Print("Confirm Password: ")
						confirmPassword := c.ReadPassword()

						if password == confirmPassword {
							break
						}
						c.Println()
						c.Println("Passwords do not match. Please try again.")
						c.Println()
					} else {
						c.Println()
						c.Println("Password must be at least 8 characters and contain both letters and numbers.")
						c.Println()
					}
				}

				err := client.SignUp(username, email, password)
				if err != nil {
					utils.PrintError(err.Error())
					return
				}
				c.Println("Account created successfully. You are now signed in.")
				loggedIn = true
				for _, command := range guestCommands {
					shell.DeleteCmd(command.Name)
				}
				addCommands(shell, userCommands)
			},
		},
	}

	// Define the commands available to a signed-in user
	userCommands = []Command{
		{
			Name: "habits",
			Desc: "List your habits with their streaks and completion state",
			Func: func(c *ishell.Context) {
				result, err := client.ListHabits()
				if err != nil {
					utils.PrintError(err.Error())
					return
				}
				if result.Total == 0 {
					c.Println("No habits yet. Use 'add' to create one.")
					return
				}
				for i, habit := range result.Rows {
					done := " "
					if habit.IsCompletedToday {
						done = "x"
					}
					c.Printf("%2d. [%s] %s (%s) streak: %d  id: %s\n",
						i+1, done, habit.Title, habit.Frequency, habit.StreakCount, habit.ID.Hex())
					if habit.Description != "" {
						c.Println("      " + habit.Description)
					}
				}
			},
		},
		{
			Name: "add",
			Desc: "Create a new habit",
			Func: func(c *ishell.Context) {
				var title string
				for {
					c.Print("Habit title: ")
					title = c.ReadLine()
					if title != "" {
						break
					}
					c.Println("Title cannot be empty.")
				}

				c.Print("Description (optional): ")
				description := c.ReadLine()

				c.Println("Frequency:")
				choice := c.MultiChoice([]string{"daily", "weekly", "monthly"}, "Pick a cadence")
				frequency := []string{"daily", "weekly", "monthly"}[choice]

				habit, err := client.CreateHabit(title, description, frequency)
				if err != nil {
					utils.PrintError(err.Error())
					return
				}
				c.Printf("Created '%s' (%s).\n", habit.Title, habit.Frequency)
			},
		},
		{
			Name: "done",
			Desc: "Mark a habit completed for its current period",
			Func: func(c *ishell.Context) {
				habitID := pickHabit(c)
				if habitID == "" {
					return
				}
				if err := client.CompleteHabit(habitID); err != nil {
					utils.PrintError(err.Error())
					return
				}
				c.Println("Completion recorded. Keep the streak going!")
			},
		},
		{
			Name: "edit",
			Desc: "Edit a habit's title, description or frequency",
			Func: func(c *ishell.Context) {
				habitID := pickHabit(c)
				if habitID == "" {
					return
				}

				c.Print("New title (leave empty to keep): ")
				title := c.ReadLine()
				c.Print("New description (leave empty to keep): ")
				description := c.ReadLine()
				c.Print("New frequency daily/weekly/monthly (leave empty to keep): ")
				frequency := c.ReadLine()

				habit, err := client.UpdateHabit(habitID, title, description, frequency)
				if err != nil {
					utils.PrintError(err.Error())
					return
				}
				c.Printf("Updated '%s' (%s).\n", habit.Title, habit.Frequency)
			},
		},
		{
			Name: "remove",
			Desc: "Delete a habit and its completion history",
			Func: func(c *ishell.Context) {
				habitID := pickHabit(c)
				if habitID == "" {
					return
				}
				c.Print("This removes the habit and all its completions. Type 'yes' to confirm: ")
				if c.ReadLine() != "yes" {
					c.Println("Aborted.")
					return
				}
				if err := client.DeleteHabit(habitID); err != nil {
					utils.PrintError(err.Error())
					return
				}
				c.Println("Habit deleted.")
			},
		},
		{
			Name: "stats",
			Desc: "Show aggregate statistics over your habits",
			Func: func(c *ishell.Context) {
				stats, err := client.GetStatistics()
				if err != nil {
					utils.PrintError(err.Error())
					return
				}
				c.Printf("Habits: %d   Completions: %d\n", stats.TotalHabits, stats.TotalCompletions)
				if stats.HighestStreakHabit != nil {
					c.Printf("Longest streak: '%s' (%d)\n", stats.HighestStreakHabit.Title, stats.HighestStreakHabit.StreakCount)
				}
				if stats.MostCompletedHabit != nil {
					c.Printf("Most completed: '%s' (%d times)\n", stats.MostCompletedHabit.Habit.Title, stats.MostCompletedHabit.CompletionCount)
				}
				if len(stats.HabitsByStreak) > 0 {
					c.Println("By streak:")
					for _, habit := range stats.HabitsByStreak {
						c.Printf("  %3d  %s\n", habit.StreakCount, habit.Title)
					}
				}
			},
		},
		{
			Name: "signout",
			Desc: "Sign out of your account",
			Func: func(c *ishell.Context) {
				if err := client.SignOut(); err != nil {
					utils.PrintError(err.Error())
					return
				}
				loggedIn = false
				c.Println("You are now signed out.")
				for _, command := range userCommands {
					shell.DeleteCmd(command.Name)
				}
				addCommands(shell, guestCommands)
			},
		},
	}

	// Define common commands that are always available, regardless of login state
	commonCommands = []Command{
		{
			Name: "exit",
			Desc: "Exit the application",
			Func: func(c *ishell.Context) {
				fmt.Println("Goodbye!")
				os.Exit(0)
			},
		},
	}

	// The help command is created separately to avoid the cyclic dependency
	commonCommands = append(commonCommands, Command{
		Name: "help",
		Desc: "List available commands",
		Func: func(c *ishell.Context) {
			c.Println("Available commands:")
			if loggedIn {
				for _, command := range userCommands {
					c.Println("  |-- '" + command.Name + "' : " + command.Desc)
				}
			} else {
				for _, command := range guestCommands {
					c.Println("  |-- '" + command.Name + "' : " + command.Desc)
				}
			}
			for _, command := range commonCommands {
				c.Println("  |-- '" + command.Name + "' : " + command.Desc)
			}
			c.Println()
		},
	})
}

// pickHabit lists the user's habits and reads a selection, returning the
// chosen habit's id or an empty string when the selection fails.
func pickHabit(c *ishell.Context) string {
	result, err := client.ListHabits()
	if err != nil {
		utils.PrintError(err.Error())
		return ""
	}
	if result.Total == 0 {
		c.Println("No habits yet. Use 'add' to create one.")
		return ""
	}

	for i, habit := range result.Rows {
		c.Printf("%2d. %s (%s)\n", i+1, habit.Title, habit.Frequency)
	}
	c.Print("Pick a habit number: ")
	choice, err := strconv.Atoi(c.ReadLine())
	if err != nil || choice < 1 || choice > len(result.Rows) {
		c.Println("Invalid selection.")
		return ""
	}
	return result.Rows[choice-1].ID.Hex()
}

// addCommands adds the given commands to the shell.
func addCommands(shell *ishell.Shell, commands []Command) {
	for _, command := range commands {
		shell.AddCmd(&ishell.Cmd{
			Name: command.Name,
			Help: "Command: " + command.Name,
			Func: command.Func,
		})
	}
}

// Execute welcomes the user, registers the command sets matching the
// login state, and runs the shell.
func Execute() {
	shell.Println()
	figure.NewFigure("Streakly", "basic", true).Print()
	shell.Println("Welcome to Streakly -- the habit tracker CLI app. Type 'help' to see a list of commands.")

	addCommands(shell, commonCommands)
	if loggedIn {
		addCommands(shell, userCommands)
	} else {
		addCommands(shell, guestCommands)
	}

	shell.Run()
}
