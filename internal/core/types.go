package core

import "specimencore/pkg/domain"

type (
	Collection         = domain.Collection
	Specimen           = domain.Specimen
	Session            = domain.Session
	Change             = domain.Change
	Violation          = domain.Violation
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)
