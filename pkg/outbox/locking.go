package outbox

import "gorm.io/gorm/clause"

func skipLockedClause() clause.Expression {
	return clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}
}
