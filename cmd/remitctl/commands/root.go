package commands

import (
	"io"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	grpcadapter "github.com/remitflow/remitflow-backend/internal/adapter/grpc"
	"github.com/remitflow/remitflow-backend/internal/app"
	"github.com/remitflow/remitflow-backend/internal/config"
)

var (
	serverAddr string
	apiToken   string
	be         backend
	conn       io.Closer
)

func Execute() error {
	// PersistentPostRunE is skipped when a command fails
	defer func() { _ = closeConn() }()
	return newRootCmd().Execute()
}

func closeConn() error {
	if conn == nil {
		return nil
	}
	err := conn.Close()
	conn = nil
	be = nil
	return err
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "remitctl",
		Short:         "Inspect corridors, rates and transfers",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if be != nil {
				return nil
			}
			if serverAddr == "" {
				cfg, err := config.LoadConfig()
				if err != nil {
					return err
				}
				core, err := app.NewCore(cfg, nil)
				if err != nil {
					return err
				}
				be = localBackend{service: core.Service}
				return nil
			}

			cc, err := grpc.NewClient(serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return err
			}
			conn = cc
			be = remoteBackend{client: grpcadapter.NewClient(cc, apiToken)}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeConn()
		},
	}

	root.PersistentFlags().StringVar(&serverAddr, "server", "", "gRPC server address (e.g. localhost:8080); empty runs in-process")
	root.PersistentFlags().StringVar(&apiToken, "token", "dev-token", "API token sent to the server")

	root.AddCommand(corridorsCmd(), ratesCmd(), quoteCmd(), transferCmd())
	return root
}
