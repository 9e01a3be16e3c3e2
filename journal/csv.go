package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSVJournal struct {
	positions *csv.Writer
	equity    *csv.Writer
	pf, ef    *os.File
}

func NewCSV(positionsPath, equityPath string) (*CSVJournal, error) {
	pf, err := os.Create(positionsPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		_ = pf.Close()
		return nil, err
	}

	pw := csv.NewWriter(pf)
	ew := csv.NewWriter(ef)

	if err := pw.Write([]string{"position_id", "instrument", "direction", "quantity", "entry_price", "exit_price", "open_time", "close_time", "realized_pl", "pnl_percent", "strategy", "tags", "reason"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"time", "event", "version", "balance", "equity", "margin_used", "free_margin", "margin_level", "open_trades", "closed_trades"}); err != nil {
		return nil, err
	}

	pw.Flush()
	if err := pw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{pw, ew, pf, ef}, nil
}

func (j *CSVJournal) RecordPosition(r PositionRecord) error {
	err := j.positions.Write([]string{
		r.PositionID,
		r.Instrument,
		r.Direction,
		f(r.Quantity),
		f(r.EntryPrice),
		f(r.ExitPrice),
		r.OpenTime.Format(time.RFC3339),
		r.CloseTime.Format(time.RFC3339),
		f(r.RealizedPL),
		f(r.PnLPercent),
		r.Strategy,
		joinTags(r.Tags),
		r.Reason,
	})
	if err != nil {
		return err
	}
	j.positions.Flush()
	return j.positions.Error()
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	err := j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		e.Event,
		strconv.FormatUint(e.Version, 10),
		f(e.Balance),
		f(e.Equity),
		f(e.MarginUsed),
		f(e.FreeMargin),
		f(e.MarginLevel),
		strconv.Itoa(e.OpenTrades),
		strconv.Itoa(e.ClosedTrades),
	})
	if err != nil {
		return err
	}

	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSVJournal) Close() error {
	j.positions.Flush()
	if err := j.positions.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.pf.Close(); err != nil {
		return err
	}
	if err := j.ef.Close(); err != nil {
		return err
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
