package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/safing/occbase/api"
	"github.com/safing/occbase/database"
	"github.com/safing/occbase/log"
	"github.com/safing/occbase/metrics"
	"github.com/safing/occbase/run"
)

var (
	listenAddress string
	tableDefs     []string
	creatorDefs   []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve records over HTTP",
	Long: `Serve exposes the rows of the given tables at /records/{table}/{id}.
Tables are defined as name:primarykey:column,column,...`,
	Example: `  occbase serve --db-location /var/lib/occbase --table tickets:id:title,status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := metrics.RegisterDefaults(); err != nil {
			return err
		}

		svc := &apiService{address: listenAddress}
		if code := run.Run(svc); code != 0 {
			log.Shutdown()
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&listenAddress, "listen", "", "listen address, defaults to the api/listenAddress config option")
	serveCmd.Flags().StringArrayVar(&tableDefs, "table", nil, "table definition name:primarykey:column,column,...")
	serveCmd.Flags().StringArrayVar(&creatorDefs, "creator", nil, "creator column of a table as table:column")
}

// parseTableDef parses name:primarykey:column,column,...
func parseTableDef(def string) (name, primaryKey string, columns []string, err error) {
	parts := strings.Split(def, ":")
	if len(parts) != 3 {
		return "", "", nil, fmt.Errorf("invalid table definition %q: expected name:primarykey:columns", def)
	}
	for _, column := range strings.Split(parts[2], ",") {
		if column = strings.TrimSpace(column); column != "" {
			columns = append(columns, column)
		}
	}
	return parts[0], parts[1], columns, nil
}

// parseCreatorDef parses table:column.
func parseCreatorDef(def string) (table, column string, err error) {
	table, column, ok := strings.Cut(def, ":")
	if !ok || table == "" || column == "" {
		return "", "", fmt.Errorf("invalid creator definition %q: expected table:column", def)
	}
	return table, column, nil
}

type apiService struct {
	address string
	db      *database.Interface
	server  *api.Server
	done    chan struct{}
}

func (s *apiService) Start() error {
	db, err := openDatabase()
	if err != nil {
		return err
	}
	s.db = db

	for _, def := range tableDefs {
		name, pk, columns, err := parseTableDef(def)
		if err != nil {
			return err
		}
		if _, err := db.RegisterTable(context.Background(), name, pk, columns...); err != nil {
			return err
		}
		log.Infof("main: serving table %s", name)
	}
	for _, def := range creatorDefs {
		table, column, err := parseCreatorDef(def)
		if err != nil {
			return err
		}
		if err := db.SetCreatorColumn(table, column); err != nil {
			return err
		}
	}

	s.server = api.NewServer(db)
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.server.ListenAndServe(s.address); err != nil {
			log.Errorf("api: failed to listen: %s", err)
		}
	}()
	return nil
}

func (s *apiService) Done() <-chan struct{} {
	return s.done
}

func (s *apiService) Stop() error {
	var result *multierror.Error

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("api: %w", err))
		}
	}
	if err := database.Shutdown(); err != nil {
		result = multierror.Append(result, err)
	}

	return result.ErrorOrNil()
}
