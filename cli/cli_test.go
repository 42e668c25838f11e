package cli_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/monadicstack/livepost/cli"
	"github.com/monadicstack/livepost/internal/logger"
	"github.com/monadicstack/livepost/internal/testext"
	"github.com/monadicstack/livepost/posts"
	"github.com/monadicstack/livepost/rpc/errors"
	"github.com/monadicstack/livepost/web"
	"github.com/stretchr/testify/suite"
)

type CLISuite struct {
	suite.Suite
	ctx context.Context
	out *bytes.Buffer
}

func (suite *CLISuite) SetupTest() {
	suite.ctx = context.Background()
	suite.out = &bytes.Buffer{}
}

func (suite *CLISuite) TearDownTest() {
	logger.Logger = slog.Default()
}

func (suite *CLISuite) TestList() {
	dir := suite.T().TempDir()
	dbPath := filepath.Join(dir, "posts.db")
	configPath := filepath.Join(dir, "livepost.yaml")
	suite.Require().NoError(os.WriteFile(configPath, []byte("storage:\n  driver: sqlite\n  path: "+dbPath+"\n"), 0o600))

	store, err := posts.Open(posts.DriverSQLite, dbPath)
	suite.Require().NoError(err)
	_, err = store.Create(suite.ctx, posts.Fields{Title: "First", Body: "one"})
	suite.Require().NoError(err)
	_, err = store.Create(suite.ctx, posts.Fields{Title: "Second", Body: "two"})
	suite.Require().NoError(err)
	suite.Require().NoError(store.Close())

	request := &cli.ListRequest{}
	request.ConfigPath = configPath
	err = cli.List{Out: suite.out}.Exec(suite.ctx, request)
	suite.Require().NoError(err)

	output := suite.out.String()
	suite.Require().Contains(output, "Title")
	suite.Require().Contains(output, "First")
	suite.Require().Contains(output, "two")
	suite.Require().Less(bytes.Index(suite.out.Bytes(), []byte("First")), bytes.Index(suite.out.Bytes(), []byte("Second")),
		"Posts should be listed in id order")
}

func (suite *CLISuite) TestList_badConfig() {
	path := filepath.Join(suite.T().TempDir(), "livepost.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte("storage:\n  driver: postgres\n"), 0o600))

	request := &cli.ListRequest{}
	request.ConfigPath = path
	suite.Require().Error(cli.List{Out: suite.out}.Exec(suite.ctx, request))

	request.ConfigPath = filepath.Join(suite.T().TempDir(), "typo.yaml")
	suite.Require().Error(cli.List{Out: suite.out}.Exec(suite.ctx, request), "An explicit config path must exist")
	suite.Require().Empty(suite.out.String())
}

func (suite *CLISuite) TestCall() {
	server := suite.startServer()
	defer server.Close()

	err := cli.Call{Out: suite.out}.Exec(suite.ctx, &cli.CallRequest{
		Operation: "store",
		Addr:      server.URL,
	})
	suite.Require().NoError(err, "Missing buffers are a validation failure, not a fault")
	suite.Require().Contains(suite.out.String(), "The title field is required.")

	suite.out.Reset()
	err = cli.Call{Out: suite.out}.Exec(suite.ctx, &cli.CallRequest{Operation: "Render", Addr: server.URL})
	suite.Require().NoError(err)
	suite.Require().Contains(suite.out.String(), `data-call="Store"`)
}

func (suite *CLISuite) TestCall_notFound() {
	server := suite.startServer()
	defer server.Close()

	err := cli.Call{Out: suite.out}.Exec(suite.ctx, &cli.CallRequest{Operation: "Edit", ID: 42, Addr: server.URL})
	suite.Require().True(errors.IsNotFound(err))
	suite.Require().Contains(suite.out.String(), web.AlertNotFound)
}

func (suite *CLISuite) TestCall_invalid() {
	err := cli.Call{Out: suite.out}.Exec(suite.ctx, &cli.CallRequest{Operation: "Destroy", Addr: "http://localhost:1"})
	suite.Require().True(errors.IsBadRequest(err))

	err = cli.Call{Out: suite.out}.Exec(suite.ctx, &cli.CallRequest{Operation: "Delete", Addr: "http://localhost:1"})
	suite.Require().True(errors.IsBadRequest(err), "Delete without an id should not reach the server")
	suite.Require().Empty(suite.out.String())
}

// Commands should expose the flags the docs promise.
func (suite *CLISuite) TestCommands() {
	serve := cli.Serve{}.Command()
	suite.Require().NotNil(serve.Flags().Lookup("config"))
	suite.Require().NotNil(serve.Flags().Lookup("addr"))

	list := cli.List{}.Command()
	suite.Require().NotNil(list.Flags().Lookup("config"))

	call := cli.Call{}.Command()
	for _, name := range []string{"id", "title", "body", "addr"} {
		suite.Require().NotNil(call.Flags().Lookup(name), "call should have --%s", name)
	}
}

func (suite *CLISuite) startServer() *httptest.Server {
	server, err := web.NewServer(posts.NewMemoryStore(), web.WithLogger(testext.QuietLogger()))
	suite.Require().NoError(err)
	return httptest.NewServer(server.Handler())
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}
