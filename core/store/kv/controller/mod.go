// Package controller implements a controller for the key-value database.
package controller

import (
	"path/filepath"

	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/core/store/kv"
	"golang.org/x/xerrors"
)

// DatabaseFile is the name of the database file in the config folder.
const DatabaseFile = "ballot.db"

// minimal is an initializer that opens the database of the node and injects
// it.
//
// - implements node.Initializer
type minimal struct{}

// NewController returns a new controller for the database.
func NewController() node.Initializer {
	return minimal{}
}

// SetCommands implements node.Initializer. It does not define any command.
func (m minimal) SetCommands(builder node.Builder) {}

// OnStart implements node.Initializer. It opens the database stored in the
// config folder and injects it.
func (m minimal) OnStart(flags cli.Flags, inj node.Injector) error {
	path := filepath.Join(flags.Path(node.ConfigFlag), DatabaseFile)

	db, err := kv.New(path)
	if err != nil {
		return xerrors.Errorf("failed to open db: %v", err)
	}

	inj.Inject(db)

	ballot.Logger.Debug().Str("path", path).Msg("database opened")

	return nil
}

// OnStop implements node.Initializer. It closes the database.
func (m minimal) OnStop(inj node.Injector) error {
	var db kv.DB
	err := inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("injector: %v", err)
	}

	err = db.Close()
	if err != nil {
		return xerrors.Errorf("while closing db: %v", err)
	}

	return nil
}
