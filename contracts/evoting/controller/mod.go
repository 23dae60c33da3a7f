// Package controller implements the controller of the election contract.
//
// It registers the contract on the execution service of the node, starts the
// indexer of the elections and the routine that ends the expired elections of
// the node. The commands are executed by the daemon with the key of the node,
// or with a key file given by the user.
package controller

import (
	"path/filepath"
	"time"

	"go.dedis.ch/ballot/cli"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/contracts/evoting"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/crypto/loader"
	"go.dedis.ch/ballot/proxy"
	"golang.org/x/xerrors"
)

const (
	// ExpiryFlag is the name of the start flag that defines the period of the
	// routine that ends the expired elections of the node.
	ExpiryFlag = "expiry"

	// KeyFile is the name of the file of the node private key in the config
	// folder.
	KeyFile = "private.key"
)

const defaultExpiry = time.Minute

// miniController is a CLI initializer to register the election contract.
//
// - implements node.Initializer
type miniController struct{}

// NewController creates a new controller for the election contract.
func NewController() node.Initializer {
	return miniController{}
}

// SetCommands implements node.Initializer. It defines the election commands.
func (miniController) SetCommands(builder node.Builder) {
	builder.SetStartFlags(cli.DurationFlag{
		Name:    ExpiryFlag,
		Usage:   "period to end the expired elections of the node, zero to disable",
		Value:   defaultExpiry,
		EnvVars: []string{"BALLOT_EXPIRY"},
	})

	keyFlag := cli.StringFlag{
		Name:  "key",
		Usage: "path to the private key that signs the transaction, the node key by default",
	}

	electionFlag := cli.StringFlag{
		Name:     "election",
		Required: true,
		Usage:    "identifier of the election",
	}

	cmd := builder.SetCommand("evoting")
	cmd.SetDescription("Elections administration")

	sub := cmd.SetSubCommand("create")
	sub.SetDescription("Create a new election with the node as the authority")
	sub.SetFlags(
		cli.StringFlag{
			Name:  "file",
			Usage: "YAML file that defines the election, the other flags override it",
		},
		cli.StringFlag{
			Name:  "id",
			Usage: "identifier of the election, a random UUID by default",
		},
		cli.StringFlag{
			Name:  "name",
			Usage: "name of the election",
		},
		cli.StringSliceFlag{
			Name:  "candidate",
			Usage: "one or several candidates",
		},
		cli.StringFlag{
			Name:  "start",
			Usage: "start of the voting window, RFC3339 or unix seconds",
		},
		cli.StringFlag{
			Name:  "end",
			Usage: "end of the voting window, RFC3339 or unix seconds",
		},
	)
	sub.SetAction(builder.MakeAction(createAction{}))

	sub = cmd.SetSubCommand("vote")
	sub.SetDescription("Vote for a candidate")
	sub.SetFlags(
		electionFlag,
		cli.IntFlag{
			Name:     "candidate",
			Required: true,
			Usage:    "index of the candidate",
		},
		cli.StringFlag{
			Name:  "hash",
			Usage: "verification hash stored with the vote",
		},
		keyFlag,
	)
	sub.SetAction(builder.MakeAction(voteAction{}))

	sub = cmd.SetSubCommand("end")
	sub.SetDescription("End an election")
	sub.SetFlags(electionFlag, keyFlag)
	sub.SetAction(builder.MakeAction(endAction{}))

	sub = cmd.SetSubCommand("show")
	sub.SetDescription("Show the results of an election")
	sub.SetFlags(electionFlag)
	sub.SetAction(builder.MakeAction(showAction{}))

	sub = cmd.SetSubCommand("list")
	sub.SetDescription("List the elections")
	sub.SetAction(builder.MakeAction(listAction{}))

	sub = cmd.SetSubCommand("verify")
	sub.SetDescription("Verify the vote of a voter against a verification hash")
	sub.SetFlags(
		electionFlag,
		cli.StringFlag{
			Name:     "voter",
			Required: true,
			Usage:    "hex public key of the voter",
		},
		cli.StringFlag{
			Name:  "hash",
			Usage: "verification hash of the vote",
		},
	)
	sub.SetAction(builder.MakeAction(verifyAction{}))

	sub = cmd.SetSubCommand("identity")
	sub.SetDescription("Show the public key of the node")
	sub.SetAction(builder.MakeAction(identityAction{}))
}

// OnStart implements node.Initializer. It registers the contract, loads the
// key of the node and starts the indexer and the expirer.
func (miniController) OnStart(flags cli.Flags, inj node.Injector) error {
	var exec *native.Service
	err := inj.Resolve(&exec)
	if err != nil {
		return xerrors.Errorf("failed to resolve native service: %v", err)
	}

	var srvc ledger.Ledger
	err = inj.Resolve(&srvc)
	if err != nil {
		return xerrors.Errorf("failed to resolve ledger: %v", err)
	}

	var db kv.DB
	err = inj.Resolve(&db)
	if err != nil {
		return xerrors.Errorf("failed to resolve db: %v", err)
	}

	keyPath := filepath.Join(flags.Path(node.ConfigFlag), KeyFile)

	signer, err := loadSigner(loader.NewFileLoader(keyPath), true)
	if err != nil {
		return xerrors.Errorf("failed to load key: %v", err)
	}

	client := evoting.NewClient(srvc, signed.NewManager(signer, srvc))

	indexer := evoting.NewIndexer(db, srvc)

	err = indexer.Start()
	if err != nil {
		return xerrors.Errorf("failed to start indexer: %v", err)
	}

	evoting.RegisterContract(exec, evoting.NewContract())

	inj.Inject(signer)
	inj.Inject(client)
	inj.Inject(indexer)

	period := flags.Duration(ExpiryFlag)
	if period > 0 {
		authority, err := signer.GetPublicKey().MarshalBinary()
		if err != nil {
			indexer.Stop()
			return xerrors.Errorf("failed to marshal identity: %v", err)
		}

		expirer := evoting.NewExpirer(client, srvc, indexer, authority, evoting.WithPeriod(period))
		expirer.Start()

		inj.Inject(expirer)
	}

	var p proxy.Proxy
	err = inj.Resolve(&p)
	if err == nil {
		registerHandlers(p, srvc, indexer)
	}

	return nil
}

// OnStop implements node.Initializer. It stops the expirer and the indexer.
func (miniController) OnStop(inj node.Injector) error {
	var expirer *evoting.Expirer
	err := inj.Resolve(&expirer)
	if err == nil {
		expirer.Stop()
	}

	var indexer *evoting.Indexer
	err = inj.Resolve(&indexer)
	if err != nil {
		return xerrors.Errorf("failed to resolve indexer: %v", err)
	}

	indexer.Stop()

	return nil
}

// loadSigner reads the private key of the loader. The key is created if it does
// not exist and create is true.
func loadSigner(l loader.Loader, create bool) (ed25519.Signer, error) {
	var data []byte
	var err error

	if create {
		data, err = l.LoadOrCreate(ed25519.NewGenerator())
	} else {
		data, err = l.Load()
	}

	if err != nil {
		return ed25519.Signer{}, xerrors.Errorf("failed to read key: %v", err)
	}

	signer, err := ed25519.NewSignerFromBytes(data)
	if err != nil {
		return ed25519.Signer{}, xerrors.Errorf("failed to decode key: %v", err)
	}

	return signer, nil
}
