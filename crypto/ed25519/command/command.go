// Package command defines cli commands to manage the Ed25519 keys of the
// voters and the authorities.
package command

import (
	"os"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/crypto/ed25519"
)

// Initializer implements the initializer of the key commands.
//
// - implements cli.Initializer
type Initializer struct{}

// SetCommands implements cli.Initializer.
func (i Initializer) SetCommands(builder cli.Builder) {
	action := action{
		printer:   os.Stdout,
		genSigner: ed25519.NewGenerator().Generate,
		getPubKey: getPubkey,
		readFile:  os.ReadFile,
		saveFile:  saveToFile,
	}

	cmd := builder.SetCommand("keys")
	cmd.SetDescription("Key management")

	sub := cmd.SetSubCommand("new")
	sub.SetDescription("create a new private key and print it or save it")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "save",
			Usage: "if provided, saves the key to the file",
		},
		cli.BoolFlag{
			Name:  "force",
			Usage: "overwrite an existing file",
		},
	)
	sub.SetAction(action.newSignerAction)

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("print the public key of a private key file")
	sub.SetFlags(
		cli.StringFlag{
			Name:     "path",
			Required: true,
			Usage:    "path to the private key file",
		},
		cli.StringFlag{
			Name:  "format",
			Value: Hex,
			Usage: "output format of the public key: " + Hex + ", " + Base64 + " or " + Text,
		},
	)
	sub.SetAction(action.loadSignerAction)
}
