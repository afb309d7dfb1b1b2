package httpserver

import (
	"context"
	"encoding/hex"
	"fmt"
	"html"
	"math"
	"strings"
)

const recentWindowMinutes = 10

// renderDashboard builds the GET / HTML page: configuration, the
// aggregate stats, the per-user leaderboard, recent DPs and detected
// pre-collisions. Field selection and the breakeven/probability math
// are grounded on the original implementation's handle_dashboard.
func (s *Server) renderDashboard(ctx context.Context) (string, error) {
	stats, err := s.store.GetStats(ctx, recentWindowMinutes)
	if err != nil {
		return "", err
	}
	users, err := s.store.UsersByDPCount(ctx)
	if err != nil {
		return "", err
	}
	recent, err := s.store.RecentDPs(ctx, 10)
	if err != nil {
		return "", err
	}
	collisions, err := s.store.AllCollisions(ctx)
	if err != nil {
		return "", err
	}

	totalBits := s.params.TotalBytes() * 8
	dpBits := s.params.DPBits
	approxHashes := float64(stats.DPCount) * math.Pow(2, float64(dpBits))
	breakevenHashes := math.Sqrt(math.Pow(2, float64(totalBits)+1) * math.Log(2))
	probSuccess := 1 - math.Exp(-(approxHashes*approxHashes)/(math.Pow(2, float64(totalBits))*2))
	hashrate := (float64(stats.RecentDPCount) * math.Pow(2, float64(dpBits))) / (float64(recentWindowMinutes) * 60)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"UTF-8\"></head><body>")
	b.WriteString("<h1>Birthday Party</h1>")
	b.WriteString("<p>A distributed search for hash collisions, leveraging the Birthday Paradox via parallel Pollard-rho with distinguished points.</p>")

	fmt.Fprintf(&b, "<h2>Config</h2><p><strong>Target collision length:</strong> %d bits</p>", totalBits)
	fmt.Fprintf(&b, "<p><strong>Distinguished point difficulty:</strong> %d bits</p>", dpBits)

	b.WriteString("<h2>Stats</h2>")
	fmt.Fprintf(&b, "<p><strong>Distinguished points found:</strong> %d</p>", stats.DPCount)
	fmt.Fprintf(&b, "<p><strong>Approx. total hashes computed:</strong> %s</p>", formatHashCount(approxHashes))
	fmt.Fprintf(&b, "<p><strong>Total hashes required for 50%% success chance:</strong> %s</p>", formatHashCount(breakevenHashes))
	fmt.Fprintf(&b, "<p><strong>Probability of a collision by now:</strong> %.2f%%</p>", probSuccess*100)
	fmt.Fprintf(&b, "<p><strong>Pre-collisions found:</strong> %d</p>", stats.CollisionCount)
	fmt.Fprintf(&b, "<p><strong>Network hashrate (%d min avg):</strong> %s/s</p>", recentWindowMinutes, formatHashCount(hashrate))

	b.WriteString("<h2>Users</h2>")
	b.WriteString("<table><tr><th>username</th><th>dp count</th><th>est. hash count</th></tr>")
	for _, u := range users {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%d</td><td>%s</td></tr>",
			html.EscapeString(u.Username), u.DPCount, formatHashCount(float64(u.DPCount)*math.Pow(2, float64(dpBits))))
	}
	b.WriteString("</table>")

	b.WriteString("<h2>Recent Distinguished Points</h2>")
	b.WriteString("<table><tr><th>timestamp (UTC)</th><th>start</th><th>dp</th><th>username</th></tr>")
	for _, r := range recent {
		fmt.Fprintf(&b, "<tr><td>%s</td><td><code>%s</code></td><td><code>%s</code></td><td>%s</td></tr>",
			r.ReceivedAt.Format("2006-01-02 15:04:05"), hex.EncodeToString(r.Start), hex.EncodeToString(r.DP), html.EscapeString(r.Username))
	}
	b.WriteString("</table>")

	b.WriteString("<h2>Pre-Collisions</h2>")
	b.WriteString("<table><tr><th>dp</th><th>start a</th><th>start b</th></tr>")
	for _, c := range collisions {
		fmt.Fprintf(&b, "<tr><td><code>%s</code></td><td><code>%s</code></td><td><code>%s</code></td></tr>",
			hex.EncodeToString(c.DP), hex.EncodeToString(c.StartA), hex.EncodeToString(c.StartB))
	}
	b.WriteString("</table></body></html>")

	return b.String(), nil
}

// formatHashCount renders n with an SI-style unit suffix (H/s callers
// append their own "/s"), matching the original implementation's
// hashrate_to_string.
func formatHashCount(n float64) string {
	units := []string{"", "K", "M", "G", "T", "P", "E"}
	unitIdx := 0
	if n > 1 {
		unitIdx = int(math.Log10(n)/3 - 1.0)
		if unitIdx < 0 {
			unitIdx = 0
		}
		if unitIdx >= len(units) {
			unitIdx = len(units) - 1
		}
	}
	scaled := n / math.Pow(10, float64(unitIdx*3))
	return fmt.Sprintf("%.0f%sH", scaled, units[unitIdx])
}
