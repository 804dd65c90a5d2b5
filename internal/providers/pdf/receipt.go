package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type ReceiptData struct {
	ReceiptNumber string
	DatePaid      string

	BuyerName  string
	BuyerEmail string

	PolicyName   string
	InsurerName  string
	BillingCycle string

	Installment int
	Amount      string
	Currency    string

	NextRenewalDate string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(25,
		text.NewCol(8, "Payment receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "BemaSathi", props.Text{
			Size:  12,
			Align: align.Right,
			Top:   4,
		}),
	)

	// Receipt meta
	m.AddRow(20,
		col.New(6).Add(
			text.New("Receipt number: "+data.ReceiptNumber, props.Text{Top: 0}),
			text.New("Date paid: "+data.DatePaid, props.Text{Top: 4}),
		),
		col.New(6).Add(
			text.New("Billed to", props.Text{Style: fontstyle.Bold}),
			text.New(data.BuyerName, props.Text{Top: 5}),
			text.New(data.BuyerEmail, props.Text{Top: 9}),
		),
	)

	// Payment confirmation
	m.AddRow(15,
		text.NewCol(12, data.Currency+" "+data.Amount+" paid on "+data.DatePaid, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	// Table header
	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Installment", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Cycle", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	description := data.PolicyName
	if data.InsurerName != "" {
		description += " (" + data.InsurerName + ")"
	}
	m.AddRow(15,
		text.NewCol(6, description, props.Text{Size: 9}),
		text.NewCol(2, ordinal(data.Installment), props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, data.BillingCycle, props.Text{Size: 9, Align: align.Right}),
		text.NewCol(2, data.Amount, props.Text{Size: 9, Align: align.Right}),
	)

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Total", props.Text{Size: 9}),
		text.NewCol(2, data.Amount, props.Text{Size: 9, Align: align.Right}),
	)

	if data.NextRenewalDate != "" {
		m.AddRow(15,
			text.NewCol(12, "Cover continues until "+data.NextRenewalDate, props.Text{
				Size: 9,
				Top:  5,
			}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}

func ordinal(n int) string {
	suffix := "th"
	switch n % 10 {
	case 1:
		if n%100 != 11 {
			suffix = "st"
		}
	case 2:
		if n%100 != 12 {
			suffix = "nd"
		}
	case 3:
		if n%100 != 13 {
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
