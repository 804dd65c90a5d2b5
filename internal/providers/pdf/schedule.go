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

type PolicyScheduleData struct {
	ScheduleNumber string
	IssueDate      string

	BuyerName  string
	BuyerEmail string

	PolicyName  string
	InsurerName string

	CoverageLimit     string
	Currency          string
	BillingCycle      string
	CycleAmount       string
	WaitingPeriodDays int
	CopayPercent      string

	CoveredConditions []string
	Exclusions        []string

	NextRenewalDate string
}

func (p *PDFProvider) GeneratePolicySchedule(ctx context.Context, data PolicyScheduleData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(25,
		text.NewCol(8, "Policy schedule", props.Text{
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

	m.AddRow(20,
		col.New(6).Add(
			text.New("Schedule number: "+data.ScheduleNumber, props.Text{Top: 0}),
			text.New("Issue date: "+data.IssueDate, props.Text{Top: 4}),
		),
		col.New(6).Add(
			text.New("Policyholder", props.Text{Style: fontstyle.Bold}),
			text.New(data.BuyerName, props.Text{Top: 5}),
			text.New(data.BuyerEmail, props.Text{Top: 9}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, data.PolicyName+" by "+data.InsurerName, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(6, "Sum insured", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(6, data.Currency+" "+data.CoverageLimit, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(6, "Premium per "+data.BillingCycle+" cycle", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(6, data.Currency+" "+data.CycleAmount, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(6, "Waiting period", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(6, waitingPeriodLabel(data.WaitingPeriodDays), props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(6, "Co-pay", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(6, data.CopayPercent, props.Text{Size: 9, Align: align.Right}),
	)

	if len(data.CoveredConditions) > 0 {
		m.AddRow(10,
			text.NewCol(12, "Covered conditions", props.Text{Style: fontstyle.Bold, Size: 9, Top: 4}),
		)
		for _, c := range data.CoveredConditions {
			m.AddRow(6, text.NewCol(12, "- "+c, props.Text{Size: 9}))
		}
	}

	if len(data.Exclusions) > 0 {
		m.AddRow(10,
			text.NewCol(12, "Exclusions", props.Text{Style: fontstyle.Bold, Size: 9, Top: 4}),
		)
		for _, e := range data.Exclusions {
			m.AddRow(6, text.NewCol(12, "- "+e, props.Text{Size: 9}))
		}
	}

	if data.NextRenewalDate != "" {
		m.AddRow(15,
			text.NewCol(12, "Next renewal due "+data.NextRenewalDate, props.Text{
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

func waitingPeriodLabel(days int) string {
	if days <= 0 {
		return "None"
	}
	return fmt.Sprintf("%d days", days)
}
