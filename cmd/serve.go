package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/effluent-cli/internal/server"
	"github.com/KaramelBytes/effluent-cli/internal/session"
)

var (
	srvLLM    llmFlags
	srvLoad   loadFlags
	srvAddr   string
	srvCharts bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, provider, model, err := newRequestor(cfg, srvLLM)
		if err != nil {
			return err
		}
		loader, err := srvLoad.options()
		if err != nil {
			return err
		}
		scfg := server.Config{
			BandWidth: bandWidth(0),
			Charts:    srvCharts,
			Loader:    loader,
		}
		ttl := session.DefaultTTL
		addr := srvAddr
		if cfg != nil {
			scfg.UploadMaxMB = cfg.UploadMaxMB
			scfg.FontPath = cfg.FontPath
			scfg.MonoFontPath = cfg.MonoFontPath
			scfg.ReportFilename = cfg.ReportFilename
			if cfg.SessionTTLMin > 0 {
				ttl = time.Duration(cfg.SessionTTLMin) * time.Minute
			}
			if addr == "" {
				addr = cfg.ListenAddr
			}
		}
		if addr == "" {
			addr = "127.0.0.1:8501"
		}

		srv, err := server.New(scfg, session.NewStore(ttl), req)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		fmt.Fprintf(cmd.OutOrStdout(), "%s Serving on http://%s (provider %s, model %s)\n", okMark(), addr, provider, model)
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	srvLLM.bind(serveCmd)
	srvLoad.bind(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default from config: 127.0.0.1:8501)")
	serveCmd.Flags().BoolVar(&srvCharts, "charts", false, "embed plots in downloaded reports")
}
