package dashboard

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jask/bodhiwallet/internal/market"
)

// MaxDisplayOptions caps the number of option bars on a card.
const MaxDisplayOptions = 3

// EmptyMessage is shown when a tab has no events.
const EmptyMessage = "No Event at Current Status"

// OptionBar is one progress bar on a card.
type OptionBar struct {
	Label   string
	Value   string
	Percent int64
	// SecondaryPercent is the BOT share on topic cards.
	SecondaryPercent int64
	HasSecondary     bool
	Winning          bool
}

// Card is the display model of one oracle or topic.
type Card struct {
	Address  string
	Title    string
	Raised   string
	EndLabel string
	EndTime  time.Time
	Button   string
	Path     string
	Options  []OptionBar
}

// Details returns the two detail lines of the card.
func (c Card) Details(loc *time.Location) []string {
	end := c.EndLabel
	if !c.EndTime.IsZero() {
		if loc == nil {
			loc = time.Local
		}
		end = fmt.Sprintf("%s %s", c.EndLabel, c.EndTime.In(loc).Format("2006-01-02 15:04"))
	}
	return []string{c.Raised, end}
}

type oracleLabels struct {
	end    string
	button string
	when   func(o market.Oracle) market.Timestamp
}

var oracleTabLabels = map[Tab]oracleLabels{
	TabBet: {
		end: "Betting ends", button: "Place Bet",
		when: func(o market.Oracle) market.Timestamp { return o.EndTime },
	},
	TabSet: {
		end: "Result setting ends", button: "Set Result",
		when: func(o market.Oracle) market.Timestamp { return o.ResultSetEndTime },
	},
	TabVote: {
		end: "Voting ends", button: "Place Vote",
		when: func(o market.Oracle) market.Timestamp { return o.EndTime },
	},
	TabFinalize: {
		end: "Voting ended", button: "Finalize Result",
		when: func(o market.Oracle) market.Timestamp { return o.EndTime },
	},
}

// OracleCards builds the cards of an oracle tab. The Withdraw tab lists
// topics and is rejected here.
func OracleCards(tab Tab, oracles []market.Oracle) ([]Card, error) {
	labels, ok := oracleTabLabels[tab]
	if !ok {
		return nil, fmt.Errorf("%w: %s has no oracle cards", ErrInvalidTabIndex, tab)
	}

	cards := make([]Card, 0, len(oracles))
	for _, o := range oracles {
		total := sum(o.Amounts)
		card := Card{
			Address:  o.Address,
			Title:    o.Name,
			Raised:   fmt.Sprintf("Raised: %s %s", market.FormatAmount(total), o.Token),
			EndLabel: labels.end,
			Button:   labels.button,
			Path:     fmt.Sprintf("/oracle/%s/%s", o.TopicAddress, o.Address),
		}
		if ts := labels.when(o); ts != 0 {
			card.EndTime = ts.Time()
		}

		if o.Token == market.TokenBot {
			// BOT oracles only carry the options still open to voting.
			for i, idx := range o.OptionIdxs {
				if i == MaxDisplayOptions {
					break
				}
				if idx < 0 || idx >= len(o.Options) {
					continue
				}
				card.Options = append(card.Options, OptionBar{
					Label:   o.Options[idx],
					Percent: percent(amountAt(o.Amounts, idx), o.ConsensusThreshold),
				})
			}
		} else {
			for i, label := range o.Options {
				if i == MaxDisplayOptions {
					break
				}
				card.Options = append(card.Options, OptionBar{
					Label:   label,
					Percent: percent(amountAt(o.Amounts, i), total),
				})
			}
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// TopicCards builds the cards of the Withdraw tab.
func TopicCards(topics []market.Topic) []Card {
	cards := make([]Card, 0, len(topics))
	for _, t := range topics {
		qtumTotal := sum(t.QtumAmount)
		botTotal := sum(t.BotAmount)
		card := Card{
			Address: t.Address,
			Title:   t.Name,
			Raised: fmt.Sprintf("Raised: %s %s, %s %s",
				market.FormatAmount(qtumTotal), market.TokenQtum,
				market.FormatAmount(botTotal), market.TokenBot),
			EndLabel: "Ended",
			Button:   "Withdraw",
			Path:     fmt.Sprintf("/topic/%s", t.Address),
		}
		for i, label := range t.Options {
			if i == MaxDisplayOptions {
				break
			}
			qtum := amountAt(t.QtumAmount, i)
			bot := amountAt(t.BotAmount, i)
			card.Options = append(card.Options, OptionBar{
				Label:            label,
				Value:            fmt.Sprintf("%s %s, %s %s", qtum, market.TokenQtum, bot, market.TokenBot),
				Percent:          percent(qtum, qtumTotal),
				SecondaryPercent: percent(bot, botTotal),
				HasSecondary:     true,
				Winning:          t.ResultIdx != nil && *t.ResultIdx == i,
			})
		}
		cards = append(cards, card)
	}
	return cards
}

func sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func amountAt(amounts []decimal.Decimal, i int) decimal.Decimal {
	if i < 0 || i >= len(amounts) {
		return decimal.Zero
	}
	return amounts[i]
}

// percent returns part/whole as a rounded percentage, or 0 when whole is 0.
func percent(part, whole decimal.Decimal) int64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
