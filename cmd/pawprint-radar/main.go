// PawPrint radar
// Terminal station table: everything the daemon is hearing, with range
// and bearing from our own position.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/ki9ng/PawPrint/internal/apiclient"
	"github.com/ki9ng/PawPrint/internal/state"
	"github.com/ki9ng/PawPrint/pkg/geo"
)

var (
	serverURL = flag.String("server", "http://localhost:5000", "pawprint daemon URL")
	interval  = flag.Duration("interval", 5*time.Second, "Refresh interval")
)

type radar struct {
	client *apiclient.Client
	app    *tview.Application
	table  *tview.Table
	status *tview.TextView
}

func main() {
	flag.Parse()

	r := &radar{
		client: apiclient.New(*serverURL),
		app:    tview.NewApplication(),
		table:  tview.NewTable(),
		status: tview.NewTextView().SetDynamicColors(true),
	}

	r.table.SetBorders(false).SetSelectable(true, false).SetFixed(1, 0)
	r.table.SetBorder(true).SetTitle(" Stations ")
	r.status.SetBorder(true).SetTitle(" PawPrint ")

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(r.status, 3, 0, false).
		AddItem(r.table, 0, 1, true)

	r.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Rune() == 'q' || ev.Key() == tcell.KeyEscape {
			r.app.Stop()
			return nil
		}
		return ev
	})

	go r.poll()

	if err := r.app.SetRoot(layout, true).Run(); err != nil {
		log.Fatalf("UI error: %v", err)
	}
}

func (r *radar) poll() {
	for {
		status, err := r.client.Status()
		if err != nil {
			r.app.QueueUpdateDraw(func() {
				r.status.SetText(fmt.Sprintf("[red]daemon unreachable: %v", err))
			})
			time.Sleep(*interval)
			continue
		}
		stations, err := r.client.Stations()
		if err != nil {
			time.Sleep(*interval)
			continue
		}

		r.app.QueueUpdateDraw(func() {
			r.redraw(status, stations)
		})
		time.Sleep(*interval)
	}
}

func (r *radar) redraw(status *state.Status, stations []*state.Station) {
	feed := "[red]DOWN"
	if status.APRSISConnected {
		feed = "[green]UP"
	}
	agwState := "[red]DOWN"
	if status.AGWConnected {
		agwState = "[green]UP"
	}
	pos := "no fix"
	if status.OwnPosition != nil {
		pos = fmt.Sprintf("%.4f, %.4f", status.OwnPosition.Lat, status.OwnPosition.Lon)
	}
	r.status.SetText(fmt.Sprintf(
		" feed %s[-]  agw %s[-]  stations %d  filter %.0f km  own %s",
		feed, agwState, status.StationCount, status.FilterRadius, pos))

	r.table.Clear()
	headers := []string{"CALLSIGN", "TYPE", "DIST KM", "BRG", "HEARD", "PKTS", "COMMENT"}
	for col, h := range headers {
		r.table.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false).
			SetAttributes(tcell.AttrBold))
	}

	for i, st := range stations {
		row := i + 1
		dist, brg := "-", "-"
		if status.OwnPosition != nil && st.Lat != nil && st.Lon != nil {
			d := geo.DistanceKM(status.OwnPosition.Lat, status.OwnPosition.Lon, *st.Lat, *st.Lon)
			b := geo.BearingDeg(status.OwnPosition.Lat, status.OwnPosition.Lon, *st.Lat, *st.Lon)
			dist = fmt.Sprintf("%.1f", d)
			brg = fmt.Sprintf("%03.0f", b)
		}

		kind := st.Format
		if st.IsObject {
			kind = "obj:" + st.Gateway
		}

		cells := []string{
			st.Callsign,
			kind,
			dist,
			brg,
			heardAgo(st.LastHeardTS),
			fmt.Sprintf("%d", st.PacketCount),
			st.Comment,
		}
		for col, text := range cells {
			cell := tview.NewTableCell(text)
			if col == 0 {
				cell.SetTextColor(tcell.ColorAqua)
			}
			r.table.SetCell(row, col, cell)
		}
	}
}

// heardAgo renders a last-heard timestamp as a compact age.
func heardAgo(ts float64) string {
	age := time.Since(time.Unix(int64(ts), 0))
	switch {
	case age < time.Minute:
		return fmt.Sprintf("%ds", int(age.Seconds()))
	case age < time.Hour:
		return fmt.Sprintf("%dm", int(age.Minutes()))
	default:
		return fmt.Sprintf("%.1fh", age.Hours())
	}
}
