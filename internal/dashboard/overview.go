package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/qepting91/redditboard/internal/domain"
)

// handleOverview renders the board as charts: posts per column and upvotes per column.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	columns := s.board.Snapshot().Columns

	page := components.NewPage()
	page.PageTitle = "RedditBoard"
	page.AddCharts(postsPie(columns), upvotesBar(columns))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Render(w); err != nil {
		slog.Error("Render overview failed", "err", err)
	}
}

func postsPie(columns []domain.Column) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Posts per Column"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)

	items := make([]opts.PieData, 0, len(columns))
	for _, c := range columns {
		items = append(items, opts.PieData{Name: "r/" + c.Name, Value: len(c.Posts)})
	}
	pie.AddSeries("Posts", items)
	return pie
}

func upvotesBar(columns []domain.Column) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Upvotes per Column", Subtitle: "current listing of each column"}),
		charts.WithInitializationOpts(opts.Initialization{Theme: types.ThemeWesteros}),
	)

	x := make([]string, 0, len(columns))
	y := make([]opts.BarData, 0, len(columns))
	for _, c := range columns {
		total := 0
		for _, p := range c.Posts {
			total += p.Ups
		}
		x = append(x, "r/"+c.Name+" ("+string(c.SortBy)+")")
		y = append(y, opts.BarData{Value: total})
	}
	bar.SetXAxis(x).AddSeries("Upvotes", y)
	return bar
}
