package pipeline

import (
	"context"

	"macrofact/internal/boc"
	"macrofact/internal/frame"
)

// TableSource supplies StatCan full tables. Satisfied by *statcan.Client.
type TableSource interface {
	FetchTable(ctx context.Context, pid string) (*frame.Frame, error)
}

// RateSource supplies Bank of Canada observations. Satisfied by
// *boc.Client.
type RateSource interface {
	FetchSeries(ctx context.Context, series string) (*frame.Frame, error)
	FetchGroup(ctx context.Context, group, startDate, endDate string) ([]boc.SeriesInfo, *frame.Frame, error)
}
