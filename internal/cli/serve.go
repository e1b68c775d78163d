package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/zbxport/internal/api"
	"github.com/AaronLay10/zbxport/internal/events"
	"github.com/AaronLay10/zbxport/internal/format"
	"github.com/AaronLay10/zbxport/internal/mqtt"
	"github.com/AaronLay10/zbxport/internal/service"
	"github.com/AaronLay10/zbxport/internal/storage"
	"github.com/AaronLay10/zbxport/internal/version"
)

const (
	monitorInterval = 5 * time.Second
	pingTimeout     = 2 * time.Second
)

func newServeCmd(o *options) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve exports, import checks and events over HTTP",
		Long: `Serve the HTTP API until interrupted.

Routes:
  /health /ready /metrics     probes, always open
  /export                     POST a selection, admin only
  /import/check               POST a document (?format=, ?resolve=true)
  /events /ws                 recent events and the live event stream
                              (?operation=<id>, ?prefix=export.)
  /audit                      persisted events, admin only, SQL stores

Authentication is enabled by ZBXPORT_ADMIN_USER and ZBXPORT_ADMIN_PASS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if port == 0 {
				port = o.cfg.APIPort()
			}
			return o.serve(ctx, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default api.port or 8080)")
	return cmd
}

func (o *options) serve(ctx context.Context, port int) error {
	cfg := o.cfg
	log := events.Logger()
	hostname, _ := os.Hostname()

	defaultFormat, err := format.Parse(cfg.ExportFormat())
	if err != nil {
		return err
	}
	if err := api.InitAuth(); err != nil {
		return err
	}
	api.InitTLS(cfg.API.TLSCert, cfg.API.TLSKey)
	api.InitMetrics()
	api.InitAlerts()

	b, closeStore, err := o.openStore(ctx)
	if err != nil {
		events.Emit("error", "system.error", err.Error(), map[string]any{"backend": cfg.Backend()})
		return err
	}
	defer closeStore()

	if a, ok := b.(storage.Auditor); ok {
		api.SetAuditLog(a)
		defer api.SetAuditLog(nil)
	}

	var mq *mqtt.Client
	if cfg.MQTT.Enabled {
		mq = mqtt.NewClient(mqtt.Options{
			URL:      cfg.MQTTURL(),
			ClientID: cfg.MQTTClientID(),
			Prefix:   cfg.MQTTTopic(),
		}, log)
		mq.Start()
		defer mq.Disconnect()
		events.AddSink("mqtt", mqtt.NewSink(mq, cfg.MQTTTopic()))
	}

	api.SetService(service.New(b, log))
	api.SetDefaultFormat(defaultFormat)

	probe := func(ctx context.Context) (bool, bool) {
		return storage.Healthy(ctx, b, pingTimeout), mq != nil && mq.IsConnected()
	}
	storeOK, mqttOK := probe(ctx)
	api.SetReadinessState(storeOK, mqttOK, !cfg.MQTT.Enabled)
	api.StartAlertMonitor(ctx, monitorInterval, probe)

	events.Emit("info", "system.startup", "zbxport starting", map[string]any{
		"service":  "zbxport",
		"version":  version.Version,
		"hostname": hostname,
		"pid":      os.Getpid(),
		"backend":  cfg.Backend(),
		"port":     port,
	})

	err = api.ListenAndServe(ctx, port)
	if err != nil {
		events.Emit("error", "system.error", err.Error(), nil)
	}
	events.Emit("info", "system.shutdown", "zbxport stopping", map[string]any{
		"service": "zbxport",
	})
	return err
}
