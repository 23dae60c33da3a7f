// Package cli defines how the commands of the ballot application are built.
// Each module sets its own commands on the builder, and the implementation
// decides how they are parsed.
//
//	builder := ucli.NewBuilder("ballot", nil)
//
//	cmd := builder.SetCommand("keys")
//	sub := cmd.SetSubCommand("new")
//	sub.SetFlags(cli.StringFlag{Name: "save"})
//	sub.SetAction(func(flags cli.Flags) error {
//		return save(flags.String("save"))
//	})
//
//	builder.Build().Run(os.Args)
package cli

import (
	"time"
)

// Builder builds the application from the commands set on it.
type Builder interface {
	// SetCommand creates a new command and returns its builder.
	SetCommand(name string) CommandBuilder

	Build() Application
}

// Application runs the command of the arguments.
type Application interface {
	Run(arguments []string) error
}

// CommandBuilder defines a command.
type CommandBuilder interface {
	// SetDescription sets the usage shown by the help.
	SetDescription(value string)

	SetFlags(...Flag)

	// SetAction sets the function executed when the command is invoked. A
	// command with subcommands usually has none.
	SetAction(Action)

	SetSubCommand(name string) CommandBuilder
}

// Action is executed when its command is invoked.
type Action func(Flags) error

// Flag is the definition of a flag.
type Flag interface {
	Flag()
}

// Flags gives the values of the flags to an action. A flag that is not set,
// or of another type, has the zero value.
type Flags interface {
	String(name string) string

	StringSlice(name string) []string

	Duration(name string) time.Duration

	Path(name string) string

	Int(name string) int

	Bool(name string) bool
}

// Initializer sets the commands of a module that do not need a running node,
// like the key management.
type Initializer interface {
	SetCommands(Builder)
}
