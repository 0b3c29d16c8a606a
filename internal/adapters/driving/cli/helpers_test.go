package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/federa/internal/adapters/driven/sources/memory"
	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
	"github.com/custodia-labs/federa/internal/core/services"
)

// setupTestFederation injects a federation over two in-memory sources.
func setupTestFederation(t *testing.T) *services.FederationService {
	t.Helper()
	at := func(unix int64) time.Time { return time.Unix(unix, 0).UTC() }

	teia := memory.NewSource(domain.NewSourceDescriptor("teia", []string{"KT1A"}),
		domain.Item{ID: "KT1A:1", CreatedAt: at(100), Name: "Dawn", Owners: []string{"tz1a"}, MimeType: "image/png"},
		domain.Item{ID: "KT1A:2", CreatedAt: at(200), Name: "Dusk", Owners: []string{"tz1b"}},
	)
	objkt := memory.NewSource(domain.NewSourceDescriptor("objkt", []string{"*"}, "KT1X"),
		domain.Item{ID: "KT1B:1", CreatedAt: at(150), Name: "Noon", Owners: []string{"tz1a"}, Issuer: "tz1artist"},
	)

	svc := services.NewFederationService()
	require.NoError(t, svc.Configure([]driven.Source{teia, objkt}))

	federation = svc
	t.Cleanup(func() { federation = nil })
	return svc
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
