package service

import "time"

// period — диапазон дат исходящих текущего прогона.
type period struct {
	from, to time.Time
	known    bool
}

func outboundPeriod(out []decorated) period {
	var p period
	for _, r := range out {
		d := r.rec.Date
		if d.IsZero() {
			continue
		}
		if !p.known || d.Before(p.from) {
			p.from = d
		}
		if !p.known || d.After(p.to) {
			p.to = d
		}
		p.known = true
	}
	return p
}

// contains: неизвестная дата или неизвестный период не отсекают строку.
func (p period) contains(d time.Time) bool {
	if !p.known || d.IsZero() {
		return true
	}
	return !d.Before(p.from) && !d.After(p.to)
}

// findOrphans — свободные входящие внутри периода исходящих, в порядке входа.
// Всё, что вне периода, относится к другому отчётному периоду и пропускается.
func findOrphans(out, in []decorated, used consumed) []decorated {
	p := outboundPeriod(out)
	var orphans []decorated
	for i, e := range in {
		if used.has(i) || !p.contains(e.rec.Date) {
			continue
		}
		orphans = append(orphans, e)
	}
	return orphans
}
