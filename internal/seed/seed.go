// Package seed fills an empty store with plausible demo content.
package seed

import (
	"context"
	"fmt"
	"time"

	"salterio-site/internal/events"
	"salterio-site/internal/intake"
	"salterio-site/internal/members"

	"github.com/brianvoe/gofakeit/v7"
)

var (
	sections   = []string{"Soprano", "Alto", "Tenor", "Bass", "Strings", "Keys"}
	roles      = []string{"", "", "", "Section Lead", "Director", "Accompanist"}
	eventTypes = []string{"Concert", "Rehearsal", "Service", "Wedding"}
	venues     = []string{"Cathedral of the Holy Cross", "Lusaka Playhouse", "Northmead Hall", "St. Ignatius Church"}
)

// Counts says how many rows of each kind to create.
type Counts struct {
	Events    int
	Members   int
	Enquiries int
}

type Result struct {
	Events    int
	Members   int
	Enquiries int
}

// Generator writes through the domain services, so seeded rows pass the same
// validation as admin input.
type Generator struct {
	faker   *gofakeit.Faker
	events  *events.Service
	members *members.Service
	intake  *intake.Service
	now     func() time.Time
}

func New(seed uint64, ev *events.Service, mem *members.Service, in *intake.Service) *Generator {
	return &Generator{
		faker:   gofakeit.New(seed),
		events:  ev,
		members: mem,
		intake:  in,
		now:     time.Now,
	}
}

func (g *Generator) Run(ctx context.Context, c Counts) (Result, error) {
	var res Result
	today := g.now()
	for i := 0; i < c.Events; i++ {
		date := g.faker.DateRange(today.AddDate(0, -1, 0), today.AddDate(0, 6, 0))
		_, err := g.events.Create(ctx, events.Form{
			Date:  date.Format(events.DateLayout),
			Title: g.faker.Sentence(g.faker.Number(2, 4)),
			Venue: g.faker.RandomString(venues),
			Type:  g.faker.RandomString(eventTypes),
		})
		if err != nil {
			return res, fmt.Errorf("seed event %d: %w", i+1, err)
		}
		res.Events++
	}

	for i := 0; i < c.Members; i++ {
		_, err := g.members.Create(ctx, members.Form{
			Name:    g.faker.FirstName() + " " + g.faker.LastName(),
			Section: g.faker.RandomString(sections),
			Role:    g.faker.RandomString(roles),
			Sort:    i + 1,
		})
		if err != nil {
			return res, fmt.Errorf("seed member %d: %w", i+1, err)
		}
		res.Members++
	}

	for i := 0; i < c.Enquiries; i++ {
		_, err := g.intake.SubmitEnquiry(ctx, intake.EnquiryForm{
			Name:    g.faker.Name(),
			Email:   g.faker.Email(),
			Phone:   g.faker.Phone(),
			Message: g.faker.Paragraph(1, 2, 12, " "),
		})
		if err != nil {
			return res, fmt.Errorf("seed enquiry %d: %w", i+1, err)
		}
		res.Enquiries++
	}
	return res, nil
}
