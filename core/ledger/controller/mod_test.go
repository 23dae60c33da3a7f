package controller

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.dedis.ch/ballot"
	"go.dedis.ch/ballot/cli/node"
	"go.dedis.ch/ballot/core/execution"
	"go.dedis.ch/ballot/core/execution/native"
	"go.dedis.ch/ballot/core/ledger"
	"go.dedis.ch/ballot/core/store"
	"go.dedis.ch/ballot/core/store/kv"
	"go.dedis.ch/ballot/core/txn"
	"go.dedis.ch/ballot/core/txn/signed"
	"go.dedis.ch/ballot/crypto/ed25519"
	"go.dedis.ch/ballot/internal/testing/fake"
	"go.dedis.ch/ballot/serde/json"
)

func TestMinimal_SetCommands(t *testing.T) {
	builder := node.NewBuilder(NewController())

	app := builder.Build()
	require.NotNil(t, app)
}

func TestMinimal_OnStart(t *testing.T) {
	inj, router := startLedger(t)

	var srvc *ledger.Service
	require.NoError(t, inj.Resolve(&srvc))

	var exec *native.Service
	require.NoError(t, inj.Resolve(&exec))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledger/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"index":0,"time":0,"hash":""}`, rec.Body.String())

	err := NewController().OnStop(inj)
	require.NoError(t, err)
}

func TestMinimal_Failures(t *testing.T) {
	ctrl := NewController()

	err := ctrl.OnStart(node.FlagSet{}, node.NewInjector())
	require.EqualError(t, err,
		"failed to resolve db: couldn't find dependency for 'kv.DB'")

	inj := node.NewInjector()
	inj.Inject(badDB{})

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err, fake.Err("failed to create ledger: failed to read status"))

	err = ctrl.OnStop(node.NewInjector())
	require.EqualError(t, err,
		"failed to resolve ledger: couldn't find dependency for '*ledger.Service'")
}

func TestActions_Execute(t *testing.T) {
	inj, _ := startLedger(t)

	var exec *native.Service
	require.NoError(t, inj.Resolve(&exec))

	exec.Set("test", fakeContract{})

	var srvc *ledger.Service
	require.NoError(t, inj.Resolve(&srvc))

	mgr := signed.NewManager(ed25519.NewSigner(), srvc)
	require.NoError(t, mgr.Sync())

	tx, err := mgr.Make(txn.Arg{Key: ballot.ContractArg, Value: []byte("test")})
	require.NoError(t, err)

	_, err = srvc.Submit(context.Background(), tx)
	require.NoError(t, err)

	out := new(bytes.Buffer)
	ctx := node.Context{
		Injector: inj,
		Flags:    node.FlagSet{"index": 1},
		Out:      out,
	}

	err = statusAction{}.Execute(ctx)
	require.NoError(t, err)
	require.Contains(t, out.String(), "Index: 1\n")

	out.Reset()

	err = blockAction{}.Execute(ctx)
	require.NoError(t, err)
	require.Contains(t, out.String(), "Block 1 at ")
	require.Contains(t, out.String(), "accepted\n")

	ctx.Flags = node.FlagSet{"index": 2}

	err = blockAction{}.Execute(ctx)
	require.EqualError(t, err, "failed to read block: block 2: block not found")

	ctx.Flags = node.FlagSet{}

	err = blockAction{}.Execute(ctx)
	require.EqualError(t, err, "invalid index: 0")

	ctx.Injector = node.NewInjector()

	err = statusAction{}.Execute(ctx)
	require.EqualError(t, err,
		"failed to resolve ledger: couldn't find dependency for 'ledger.Ledger'")

	err = blockAction{}.Execute(ctx)
	require.EqualError(t, err,
		"failed to resolve ledger: couldn't find dependency for 'ledger.Ledger'")
}

func TestHandlers(t *testing.T) {
	inj, router := startLedger(t)

	var exec *native.Service
	require.NoError(t, inj.Resolve(&exec))

	exec.Set("test", fakeContract{})

	var srvc *ledger.Service
	require.NoError(t, inj.Resolve(&srvc))

	mgr := signed.NewManager(ed25519.NewSigner(), srvc)
	require.NoError(t, mgr.Sync())

	tx, err := mgr.Make(txn.Arg{Key: ballot.ContractArg, Value: []byte("test")})
	require.NoError(t, err)

	data, err := tx.Serialize(json.NewContext())
	require.NoError(t, err)

	rec := serve(router, http.MethodPost, "/ledger/transactions", data)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"accepted":true`)
	require.Contains(t, rec.Body.String(), `"index":1`)

	// The same transaction is refused as it is a replay.
	rec = serve(router, http.MethodPost, "/ledger/transactions", data)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"accepted":false`)

	rec = serve(router, http.MethodPost, "/ledger/transactions", []byte("{"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "failed to decode tx")

	rec = serve(router, http.MethodGet, "/ledger/blocks/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"accepted":true`)

	rec = serve(router, http.MethodGet, "/ledger/blocks/99", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(router, http.MethodGet, "/ledger/blocks/99999999999999999999", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodGet, "/ledger/transactions", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	require.NoError(t, srvc.Close())

	rec = serve(router, http.MethodPost, "/ledger/transactions", data)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

// -----------------------------------------------------------------------------
// Utility functions

func startLedger(t *testing.T) (node.Injector, *mux.Router) {
	db, err := kv.New(t.TempDir() + "/ballot.db")
	require.NoError(t, err)

	router := mux.NewRouter()

	inj := node.NewInjector()
	inj.Inject(db)
	inj.Inject(fakeProxy{router: router})

	err = NewController().OnStart(node.FlagSet{BatchFlag: 10}, inj)
	require.NoError(t, err)

	t.Cleanup(func() {
		var srvc *ledger.Service
		if inj.Resolve(&srvc) == nil {
			srvc.Close()
		}

		db.Close()
	})

	return inj, router
}

func serve(router *mux.Router, method, path string, body []byte) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, reader))

	return rec
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

type fakeContract struct{}

func (fakeContract) Execute(store.Snapshot, execution.Step) error {
	return nil
}

func (fakeContract) UID() string {
	return "TEST"
}

type badDB struct {
	kv.DB
}

func (badDB) View(func(kv.ReadableTx) error) error {
	return fake.GetError()
}
