package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/follow.report/internal/db"
	"github.com/banshee-data/follow.report/internal/httputil"
	"github.com/banshee-data/follow.report/internal/units"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// runChart renders the observed and simulated gap of a run plus its
// simulated speed as an HTML page.
func (s *Server) runChart(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	run, err := s.store.GetRun(runID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	samples, err := s.store.RunSamples(runID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	page := components.NewPage()
	page.SetAssetsHost(echartsAssetsHost)
	page.AddCharts(gapChart(run, samples), s.speedChart(run, samples))

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func timeAxis(samples []db.Sample) []string {
	x := make([]string, len(samples))
	for i, smp := range samples {
		x[i] = strconv.FormatFloat(smp.Time, 'f', 3, 64)
	}
	return x
}

func lineOpts(title, subtitle, yName string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10%"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Time (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	}
}

func gapChart(run *db.Run, samples []db.Sample) *charts.Line {
	observed := make([]opts.LineData, len(samples))
	simulated := make([]opts.LineData, len(samples))
	for i, smp := range samples {
		observed[i] = opts.LineData{Value: smp.ObservedGap}
		simulated[i] = opts.LineData{Value: smp.Gap}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(lineOpts(
		fmt.Sprintf("Follower %d gap", run.FollowerID),
		fmt.Sprintf("%s rmse=%.4f", run.Params, run.Score.RMSE),
		"Gap (m)",
	)...)
	line.SetXAxis(timeAxis(samples)).
		AddSeries("observed", observed).
		AddSeries("simulated", simulated)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return line
}

func (s *Server) speedChart(run *db.Run, samples []db.Sample) *charts.Line {
	speed := make([]opts.LineData, len(samples))
	for i, smp := range samples {
		speed[i] = opts.LineData{Value: units.ConvertSpeed(smp.Speed, s.units)}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(lineOpts(
		fmt.Sprintf("Follower %d speed", run.FollowerID),
		fmt.Sprintf("stops=%d leader resets=%d follower resets=%d", run.Stops, run.LeaderResets, run.FollowerResets),
		units.ColumnLabel(s.units),
	)...)
	line.SetXAxis(timeAxis(samples)).
		AddSeries("simulated", speed)
	line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
	return line
}
