package pdf

import (
	"context"
	"io"
)

type Provider interface {
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
	GeneratePolicySchedule(ctx context.Context, data PolicyScheduleData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error) {
	return nil, nil
}

func (p *NoOpProvider) GeneratePolicySchedule(ctx context.Context, data PolicyScheduleData) (io.Reader, error) {
	return nil, nil
}
