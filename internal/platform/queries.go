package platform

import (
	"context"
	"fmt"
	"time"
)

// NamedObject is a project or exercise reference.
type NamedObject struct {
	Name string `json:"name"`
}

// Event carries the user's level within an event path.
type Event struct {
	Level int `json:"level"`
}

// User is the platform's user record.
type User struct {
	ID         int64     `json:"id"`
	Login      string    `json:"login"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	CreatedAt  time.Time `json:"createdAt"`
	AuditRatio float64   `json:"auditRatio"`
	TotalUp    int64     `json:"totalUp"`
	TotalDown  int64     `json:"totalDown"`
	Events     []Event   `json:"events"`
}

// AuditGroup identifies the audited group and its project.
type AuditGroup struct {
	CaptainLogin string      `json:"captainLogin"`
	Object       NamedObject `json:"object"`
}

// Audit is one closed peer-review record.
type Audit struct {
	ClosedAt    time.Time  `json:"closedAt"`
	ClosureType string     `json:"closureType"`
	Group       AuditGroup `json:"group"`
}

// Transaction is one XP or skill credit.
type Transaction struct {
	Amount    int64       `json:"amount"`
	CreatedAt time.Time   `json:"createdAt"`
	Type      string      `json:"type"`
	Object    NamedObject `json:"object"`
}

// XPHistory bundles the per-transaction XP series with the server-side sum.
type XPHistory struct {
	Transactions []Transaction
	// AggregateXP is the server-computed module XP sum; HasAggregate is
	// false when the server returned no sum (empty history).
	AggregateXP  int64
	HasAggregate bool
}

// RecentAuditLimit is the server-side cap on the recent audits query.
const RecentAuditLimit = 5

// CurrentUser fetches the authenticated user's record. The platform returns
// an array scoped to the token's identity; the first record is used.
func (c *Client) CurrentUser(ctx context.Context, token string) (User, error) {
	document := fmt.Sprintf(`
		query {
			user {
				id
				login
				email
				firstName
				lastName
				createdAt
				auditRatio
				totalDown
				totalUp
				events(where: {event: {path: {_eq: %q}}}) {
					level
				}
			}
		}
	`, c.modulePath)

	var data struct {
		User []User `json:"user"`
	}
	if err := c.query(ctx, token, document, nil, &data); err != nil {
		return User{}, err
	}
	if len(data.User) == 0 {
		return User{}, newError(KindBadResponse, 0, "no user record in response", nil)
	}
	return data.User[0], nil
}

// RecentAudits fetches the user's most recent closed audits, capped
// server-side at RecentAuditLimit and ordered by audit time descending.
func (c *Client) RecentAudits(ctx context.Context, token string) ([]Audit, error) {
	document := fmt.Sprintf(`
		query {
			user {
				audits(order_by: {auditedAt: desc_nulls_last}, limit: %d) {
					closedAt
					closureType
					group {
						captainLogin
						object {
							name
						}
					}
				}
			}
		}
	`, RecentAuditLimit)

	var data struct {
		User []struct {
			Audits []Audit `json:"audits"`
		} `json:"user"`
	}
	if err := c.query(ctx, token, document, nil, &data); err != nil {
		return nil, err
	}
	if len(data.User) == 0 {
		return nil, newError(KindBadResponse, 0, "no user record in response", nil)
	}
	return data.User[0].Audits, nil
}

// XPOverTime fetches the module's XP transactions in chronological order
// along with the server-computed module XP sum.
func (c *Client) XPOverTime(ctx context.Context, token string) (XPHistory, error) {
	document := fmt.Sprintf(`
		query {
			user {
				transactions(
					where: {_and: [{type: {_eq: "xp"}}, {path: {_like: %q}}]}
					order_by: {createdAt: asc_nulls_last}
				) {
					amount
					createdAt
					type
					object {
						name
					}
				}
				transactions_aggregate(
					where: {event: {path: {_eq: %q}}, type: {_eq: "xp"}}
				) {
					aggregate {
						sum {
							amount
						}
					}
				}
			}
		}
	`, c.modulePath+"/%", c.modulePath)

	var data struct {
		User []struct {
			Transactions []Transaction `json:"transactions"`
			Aggregate    struct {
				Aggregate struct {
					Sum struct {
						Amount *int64 `json:"amount"`
					} `json:"sum"`
				} `json:"aggregate"`
			} `json:"transactions_aggregate"`
		} `json:"user"`
	}
	if err := c.query(ctx, token, document, nil, &data); err != nil {
		return XPHistory{}, err
	}
	if len(data.User) == 0 {
		return XPHistory{}, newError(KindBadResponse, 0, "no user record in response", nil)
	}

	history := XPHistory{Transactions: data.User[0].Transactions}
	if sum := data.User[0].Aggregate.Aggregate.Sum.Amount; sum != nil {
		history.AggregateXP = *sum
		history.HasAggregate = true
	}
	return history, nil
}

// Skills fetches the user's skill transactions. Unlike the other queries the
// skills table is not scoped by the token's identity, so the user ID is an
// explicit variable.
func (c *Client) Skills(ctx context.Context, token string, userID int64) ([]Transaction, error) {
	if userID <= 0 {
		return nil, newError(KindBadResponse, 0, "missing user id for skills query", nil)
	}
	document := `
		query Skills($userId: Int!) {
			transaction(where: {userId: {_eq: $userId}, type: {_like: "skill_%"}}) {
				type
				amount
				createdAt
			}
		}
	`

	var data struct {
		Transaction []Transaction `json:"transaction"`
	}
	variables := map[string]any{"userId": userID}
	if err := c.query(ctx, token, document, variables, &data); err != nil {
		return nil, err
	}
	return data.Transaction, nil
}
