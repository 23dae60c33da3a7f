package controller

import (
	"encoding/hex"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/contracts/evoting"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/crypto/loader"
	"go.dedis.ch/ballot/internal/testing/fake"
)

func TestMiniController_SetCommands(t *testing.T) {
	builder := node.NewBuilder(NewController())

	app := builder.Build()
	require.NotNil(t, app)
}

func TestMiniController_OnStart(t *testing.T) {
	dir := t.TempDir()
	inj, _ := startNode(t, dir, float64(time.Hour))

	var signer ed25519.Signer
	require.NoError(t, inj.Resolve(&signer))

	var client *evoting.Client
	require.NoError(t, inj.Resolve(&client))

	var expirer *evoting.Expirer
	require.NoError(t, inj.Resolve(&expirer))

	// The key of the node is kept in the config folder.
	data, err := os.ReadFile(filepath.Join(dir, KeyFile))
	require.NoError(t, err)

	restored, err := ed25519.NewSignerFromBytes(data)
	require.NoError(t, err)
	require.True(t, restored.GetPublicKey().Equal(signer.GetPublicKey()))

	err = NewController().OnStop(inj)
	require.NoError(t, err)

	// The same key is loaded on restart.
	second, _ := startNode(t, dir, 0)

	var other ed25519.Signer
	require.NoError(t, second.Resolve(&other))
	require.True(t, other.GetPublicKey().Equal(signer.GetPublicKey()))

	err = second.Resolve(&expirer)
	require.Error(t, err)
}

func TestMiniController_OnStartFailures(t *testing.T) {
	ctrl := NewController()

	inj := node.NewInjector()

	err := ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"failed to resolve native service: couldn't find dependency for '*native.Service'")

	exec := native.NewExecution()
	inj.Inject(exec)

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"failed to resolve ledger: couldn't find dependency for 'ledger.Ledger'")

	db, err := kv.New(filepath.Join(t.TempDir(), "ballot.db"))
	require.NoError(t, err)

	defer db.Close()

	srvc, err := ledger.NewService(db, exec)
	require.NoError(t, err)

	inj.Inject(srvc)

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"failed to resolve db: couldn't find dependency for 'kv.DB'")

	inj.Inject(badDB{DB: db})

	err = ctrl.OnStart(node.FlagSet{node.ConfigFlag: "/proc/ballot"}, inj)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load key: failed to read key: ")

	err = ctrl.OnStart(node.FlagSet{node.ConfigFlag: t.TempDir()}, inj)
	require.EqualError(t, err,
		fake.Err("failed to start indexer: failed to read last index"))
}

func TestMiniController_OnStopFailures(t *testing.T) {
	err := NewController().OnStop(node.NewInjector())
	require.EqualError(t, err,
		"failed to resolve indexer: couldn't find dependency for '*evoting.Indexer'")
}

func TestLoadSigner(t *testing.T) {
	path := filepath.Join(t.TempDir(), KeyFile)

	_, err := loadSigner(loader.NewFileLoader(path), false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read key: ")

	signer, err := loadSigner(loader.NewFileLoader(path), true)
	require.NoError(t, err)

	same, err := loadSigner(loader.NewFileLoader(path), false)
	require.NoError(t, err)
	require.True(t, same.GetPublicKey().Equal(signer.GetPublicKey()))

	bad := filepath.Join(t.TempDir(), "bad.key")
	require.NoError(t, os.WriteFile(bad, []byte("abc"), 0600))

	_, err = loadSigner(loader.NewFileLoader(bad), false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to decode key: ")
}

// -----------------------------------------------------------------------------
// Utility functions

// startNode starts the controller on top of a ledger whose clock is set to 150.
func startNode(t *testing.T, dir string, expiry float64) (node.Injector, *mux.Router) {
	db, err := kv.New(filepath.Join(t.TempDir(), "ballot.db"))
	require.NoError(t, err)

	clk := clock.NewMock()
	clk.Set(time.Unix(150, 0))

	exec := native.NewExecution()

	srvc, err := ledger.NewService(db, exec, ledger.WithClock(clk))
	require.NoError(t, err)

	srvc.Listen()

	router := mux.NewRouter()

	inj := node.NewInjector()
	inj.Inject(db)
	inj.Inject(exec)
	inj.Inject(srvc)
	inj.Inject(fakeProxy{router: router})

	flags := node.FlagSet{node.ConfigFlag: dir}
	if expiry > 0 {
		flags[ExpiryFlag] = expiry
	}

	err = NewController().OnStart(flags, inj)
	require.NoError(t, err)

	t.Cleanup(func() {
		NewController().OnStop(inj)
		srvc.Close()
		db.Close()
	})

	return inj, router
}

func publicKeyHex(t *testing.T, signer ed25519.Signer) string {
	buf, err := signer.GetPublicKey().MarshalBinary()
	require.NoError(t, err)

	return hex.EncodeToString(buf)
}

type fakeProxy struct {
	router *mux.Router
}

func (fakeProxy) Listen() {}

func (fakeProxy) Stop() {}

func (p fakeProxy) RegisterHandler(path string, h func(http.ResponseWriter, *http.Request),
	methods ...string) {

	route := p.router.HandleFunc(path, h)
	if len(methods) > 0 {
		route.Methods(methods...)
	}
}

type badDB struct {
	kv.DB
}

func (badDB) View(func(kv.ReadableTx) error) error {
	return fake.GetError()
}
