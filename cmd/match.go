/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"couchmatch/catalog"
	"couchmatch/models"
	"couchmatch/tui"

	"github.com/cqroot/prompt"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func matchCmd() *cli.Command {
	return &cli.Command{
		Name:  "match",
		Usage: "Request a quotation and list matching sofas",
		Description: `Fills in a quotation (budget, quantity, delivery date and an optional
image of the sofa you are looking for) and prints the sofas the catalogue
matches to it.

Values not given as flags are asked for interactively.`,
		Flags: append(clientFlags(),
			&cli.Float64Flag{
				Name:  "budget",
				Usage: "Maximum price per sofa",
			},
			&cli.IntFlag{
				Name:  "quantity",
				Usage: "Number of sofas",
			},
			&cli.StringFlag{
				Name:  "delivery-date",
				Usage: "Wanted delivery date as YYYY-MM-DD",
			},
			&cli.StringFlag{
				Name:  "image",
				Usage: "Path to a picture of the sofa you are looking for",
			},
		),
		Action: func(ctx *cli.Context) error {
			cfg, err := clientConfig(ctx)
			if err != nil {
				return err
			}

			quotation, err := quotationFromFlags(ctx)
			if err != nil {
				return err
			}

			client, err := connect(ctx, cfg)
			if err != nil {
				return err
			}

			sofas, err := client.Match(ctx.Context, quotation)
			if errors.Is(err, catalog.ErrNoMatches) {
				fmt.Println("No matching sofas found")
				return nil
			}
			if err != nil {
				return err
			}

			log.WithFields(log.Fields{
				"budget":  quotation.Budget,
				"matches": len(sofas),
			}).Debug("Quotation matched")

			if len(sofas) == 0 {
				fmt.Println("No sofas fit the budget")
				return nil
			}
			for _, sofa := range sofas {
				fmt.Println(tui.Card(sofa, 80))
			}
			return nil
		},
	}
}

// quotationFromFlags builds a quotation from the flags and asks for the
// missing fields
func quotationFromFlags(ctx *cli.Context) (models.Quotation, error) {
	var q models.Quotation
	var err error

	q.Budget = ctx.Float64("budget")
	if !ctx.IsSet("budget") {
		q.Budget, err = ask("Budget:", "1000", parseBudget)
		if err != nil {
			return q, err
		}
	}

	q.Quantity = ctx.Int("quantity")
	if !ctx.IsSet("quantity") {
		q.Quantity, err = ask("Quantity:", "1", parseQuantity)
		if err != nil {
			return q, err
		}
	}

	if ctx.IsSet("delivery-date") {
		q.DeliveryDate, err = parseDeliveryDate(ctx.String("delivery-date"))
	} else {
		tomorrow := time.Now().AddDate(0, 0, 1).Format(models.DateLayout)
		q.DeliveryDate, err = ask("Delivery date (YYYY-MM-DD):", tomorrow, parseDeliveryDate)
	}
	if err != nil {
		return q, err
	}

	q.ImagePath = ctx.String("image")
	if !ctx.IsSet("image") {
		q.ImagePath, err = ask("Image (optional):", "", parseImagePath)
		if err != nil {
			return q, err
		}
	} else if _, err := parseImagePath(q.ImagePath); err != nil {
		return q, err
	}

	return q, q.Validate()
}

// ask prompts until the answer parses
func ask[T any](question, defaultValue string, parse func(string) (T, error)) (T, error) {
	for {
		answer, err := prompt.New().Ask(question).Input(defaultValue)
		if err != nil {
			var zero T
			return zero, err
		}
		value, err := parse(strings.TrimSpace(answer))
		if err == nil {
			return value, nil
		}
		fmt.Fprintln(os.Stderr, err)
	}
}

func parseBudget(s string) (float64, error) {
	budget, err := strconv.ParseFloat(s, 64)
	if err != nil || budget <= 0 {
		return 0, fmt.Errorf("budget must be a positive number")
	}
	return budget, nil
}

func parseQuantity(s string) (int, error) {
	quantity, err := strconv.Atoi(s)
	if err != nil || quantity < 1 {
		return 0, fmt.Errorf("quantity must be a whole number of at least 1")
	}
	return quantity, nil
}

func parseDeliveryDate(s string) (time.Time, error) {
	date, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("delivery date must be formatted as YYYY-MM-DD")
	}
	return date, nil
}

func parseImagePath(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	info, err := os.Stat(s)
	if err != nil {
		return "", fmt.Errorf("could not read image: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", s)
	}
	return s, nil
}
