// Command netcas-statusctl is an operator CLI that snapshots a running
// netcas-splitterd's state from its /metrics endpoint and renders it as a
// table.
package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/version"

	"github.com/netcas/splitter/pkg/estimator"
)

var statusctlApp = kingpin.New(
	"netcas-statusctl", "Snapshot the current mode, split ratio, and dispatch counters of a running netcas-splitterd.",
).UsageWriter(os.Stdout)

// snapshot is a single scrape's worth of netcas-splitterd state, one field
// per metric exposed by pkg/splitter's Collector.
type snapshot struct {
	ratio           float64
	mode            estimator.Mode
	dropPermille    float64
	avgThroughput   float64
	iopsCache       float64
	iopsDisk        float64
	cacheRequests   float64
	backendRequests float64
	missRequests    float64
}

// errNoResponse is returned when the target could not be scraped at all.
var errNoResponse = errors.New("no response from target")

func main() {
	var (
		url             string
		watchInterval   time.Duration
		requestTimeout  time.Duration
		csvOut, htmlOut bool
		markdownOut     bool
	)

	statusctlApp.Version(version.Print("netcas-statusctl"))
	statusctlApp.HelpFlag.Short('h')

	statusctlApp.Flag(
		"url", "URL of the netcas-splitterd metrics endpoint to snapshot.",
	).Default("http://localhost:9110/metrics").StringVar(&url)
	statusctlApp.Flag(
		"watch", "Re-snapshot and append a row every this often (0 disables watching, prints once).",
	).Default("0s").DurationVar(&watchInterval)
	statusctlApp.Flag(
		"timeout", "HTTP request timeout.",
	).Default("5s").DurationVar(&requestTimeout)
	statusctlApp.Flag(
		"csv", "Produce CSV output (default: false).",
	).Default("false").BoolVar(&csvOut)
	statusctlApp.Flag(
		"html", "Produce HTML output (default: false).",
	).Default("false").BoolVar(&htmlOut)
	statusctlApp.Flag(
		"markdown", "Produce markdown output (default: false).",
	).Default("false").BoolVar(&markdownOut)

	if _, err := statusctlApp.Parse(os.Args[1:]); err != nil {
		kingpin.Fatalf("failed to parse CLI flags: %v", err)
	}

	client := &http.Client{Timeout: requestTimeout}

	t := newTable()

	snap, err := fetchSnapshot(client, url)
	if err != nil {
		os.Exit(checkErr(err))
	}

	appendRow(t, time.Now(), snap)

	if watchInterval <= 0 {
		render(t, csvOut, htmlOut, markdownOut)

		return
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	for range ticker.C {
		snap, err := fetchSnapshot(client, url)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)

			continue
		}

		appendRow(t, time.Now(), snap)
		render(t, csvOut, htmlOut, markdownOut)
	}
}

// newTable returns a new, styled table.Writer with headers set.
func newTable() table.Writer {
	t := table.NewWriter()

	style := table.Style{
		Name:    "CustomStyleLight",
		Box:     table.StyleBoxLight,
		Color:   table.ColorOptionsDefault,
		HTML:    table.DefaultHTMLOptions,
		Options: table.OptionsDefault,
		Size:    table.SizeOptionsDefault,
		Title:   table.TitleOptionsDefault,
		Format: table.FormatOptions{
			Footer: text.FormatDefault,
			Header: text.FormatUpper,
			Row:    text.FormatDefault,
		},
	}

	t.SetStyle(style)
	t.SetOutputMirror(os.Stdout)
	t.SuppressTrailingSpaces()
	t.AppendHeader(table.Row{
		"Time", "Mode", "Ratio(%)", "RDMA Drop(permille)", "RDMA Avg. Throughput",
		"Cache IOPS", "Disk IOPS", "Cache Reqs", "Backend Reqs", "Miss Reqs",
	})

	return t
}

func appendRow(t table.Writer, at time.Time, snap snapshot) {
	t.AppendRow(table.Row{
		at.Format("15:04:05"),
		snap.mode.String(),
		fmt.Sprintf("%.2f", snap.ratio/100),
		snap.dropPermille,
		snap.avgThroughput,
		snap.iopsCache,
		snap.iopsDisk,
		snap.cacheRequests,
		snap.backendRequests,
		snap.missRequests,
	})
}

func render(t table.Writer, csvOut, htmlOut, markdownOut bool) {
	switch {
	case csvOut:
		t.RenderCSV()
	case htmlOut:
		t.RenderHTML()
	case markdownOut:
		t.RenderMarkdown()
	default:
		t.Render()
	}
}

// fetchSnapshot scrapes url and extracts the gauges/counters pkg/splitter's
// Collector exposes.
func fetchSnapshot(client *http.Client, url string) (snapshot, error) {
	resp, err := client.Get(url) //nolint:noctx
	if err != nil {
		return snapshot{}, fmt.Errorf("%w: %s: %w", errNoResponse, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return snapshot{}, fmt.Errorf("%w: %s returned status %d", errNoResponse, url, resp.StatusCode)
	}

	var parser expfmt.TextParser

	families, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil {
		return snapshot{}, fmt.Errorf("parsing metrics from %s: %w", url, err)
	}

	return snapshot{
		ratio:           gaugeValue(families, "netcas_splitter_ratio"),
		mode:            estimator.Mode(int(gaugeValue(families, "netcas_splitter_mode"))),
		dropPermille:    gaugeValue(families, "netcas_rdma_drop_permille"),
		avgThroughput:   gaugeValue(families, "netcas_rdma_average_throughput"),
		iopsCache:       gaugeValue(families, "netcas_iops_cache"),
		iopsDisk:        gaugeValue(families, "netcas_iops_disk"),
		cacheRequests:   gaugeValue(families, "netcas_dispatch_cache_requests_total"),
		backendRequests: gaugeValue(families, "netcas_dispatch_backend_requests_total"),
		missRequests:    gaugeValue(families, "netcas_dispatch_miss_requests_total"),
	}, nil
}

// gaugeValue returns the single sample value of a no-label metric family,
// regardless of whether it was published as a gauge or a counter; it
// returns 0 for a family that was not scraped (e.g. no cache-stats source
// configured).
func gaugeValue(families map[string]*dto.MetricFamily, name string) float64 {
	family, ok := families[name]
	if !ok || len(family.Metric) == 0 {
		return 0
	}

	m := family.Metric[0]

	if g := m.GetGauge(); g != nil {
		return g.GetValue()
	}

	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}

	return 0
}

func checkErr(err error) int {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	return 0
}
