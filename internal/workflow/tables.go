package workflow

import "github.com/erazemk/premik/internal/model"

// Transfer actions.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionSend    = "send"
	ActionReceive = "receive"
	ActionCancel  = "cancel"
)

// Loan-only actions.
const (
	ActionInitiateReturn = "initiate_return"
	ActionConfirmReturn  = "confirm_return"
	ActionMarkOverdue    = "mark_overdue"
)

// TransferMachine is the transfer request lifecycle. SENT transfers cannot
// be cancelled; the goods are already on their way.
var TransferMachine = NewMachine(model.EntityTransfer, map[string]Edge[model.TransferStatus]{
	ActionApprove: {From: []model.TransferStatus{model.TransferPending}, To: model.TransferApproved},
	ActionReject:  {From: []model.TransferStatus{model.TransferPending}, To: model.TransferRejected},
	ActionSend:    {From: []model.TransferStatus{model.TransferApproved}, To: model.TransferSent},
	ActionReceive: {From: []model.TransferStatus{model.TransferSent}, To: model.TransferCompleted},
	ActionCancel:  {From: []model.TransferStatus{model.TransferPending, model.TransferApproved}, To: model.TransferCancelled},
})

// LoanMachine is the loan lifecycle. ACTIVE is accepted wherever RECEIVED
// is. OVERDUE is one-way: a loan received after going overdue in transit
// stays OVERDUE. Receipt from OVERDUE and return from OVERDUE are further
// gated on whether the borrower already has the goods.
var LoanMachine = NewMachine(model.EntityLoan, map[string]Edge[model.LoanStatus]{
	ActionSend: {From: []model.LoanStatus{model.LoanPending}, To: model.LoanSent},
	ActionReceive: {
		From: []model.LoanStatus{model.LoanSent, model.LoanOverdue},
		To:   model.LoanReceived,
		Keep: []model.LoanStatus{model.LoanOverdue},
	},
	ActionInitiateReturn: {
		From: []model.LoanStatus{model.LoanReceived, model.LoanActive, model.LoanOverdue},
		To:   model.LoanReturnPending,
	},
	ActionConfirmReturn: {From: []model.LoanStatus{model.LoanReturnPending}, To: model.LoanReturned},
	ActionCancel:        {From: []model.LoanStatus{model.LoanPending, model.LoanSent}, To: model.LoanCancelled},
	ActionMarkOverdue: {
		From: []model.LoanStatus{model.LoanSent, model.LoanReceived, model.LoanActive},
		To:   model.LoanOverdue,
	},
})
