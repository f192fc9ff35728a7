package model

// Roles held by users. A user has exactly one.
const (
	RoleUser        = "USER"
	RoleLeader      = "LEADER"
	RoleCoordinator = "COORDINATOR"
	RoleDirector    = "DIRECTOR"
	RoleAdmin       = "ADMIN"
	RoleAuditor     = "AUDITOR"
	RoleDeveloper   = "DEVELOPER"
)

// AllRoles lists every valid role.
var AllRoles = []string{RoleUser, RoleLeader, RoleCoordinator, RoleDirector, RoleAdmin, RoleAuditor, RoleDeveloper}

// Requirement.Status (approval pipeline).
const (
	StatusPendingApproval     = "PENDING_APPROVAL"
	StatusApproved            = "APPROVED"
	StatusRejected            = "REJECTED"
	StatusPendingCoordination = "PENDING_COORDINATION"
	StatusPendingFinance      = "PENDING_FINANCE"
	StatusApprovedForPurchase = "APPROVED_FOR_PURCHASE"
	StatusPaid                = "PAID"
)

// Requirement.ProcurementStatus (fulfillment pipeline).
const (
	ProcurementPendiente  = "PENDIENTE"
	ProcurementEnTramite  = "EN_TRAMITE"
	ProcurementEntregado  = "ENTREGADO"
	ProcurementFinalizado = "FINALIZADO"
	ProcurementAnulado    = "ANULADO"
	ProcurementPostergado = "POSTERGADO"
)

// Invoice.Status, in order.
const (
	InvoiceReceived = "RECEIVED"
	InvoiceVerified = "VERIFIED"
	InvoiceApproved = "APPROVED"
	InvoicePaid     = "PAID"
)

// HistoryLog.Action tags.
const (
	ActionCreated           = "CREATED"
	ActionAsientoCreated    = "ASIENTO_CREATED"
	ActionStatusUpdated     = "STATUS_UPDATED"
	ActionUpdated           = "UPDATED"
	ActionPaymentRegistered = "PAYMENT_REGISTERED"
	ActionPaymentUpdated    = "PAYMENT_UPDATED"
	ActionPaymentDeleted    = "PAYMENT_DELETED"
	ActionGroupCreated      = "GROUP_CREATED"
	ActionGroupApproved     = "GROUP_APPROVED"
	ActionGroupRejected     = "GROUP_REJECTED"
	ActionInvoicePaid       = "INVOICE_PAID"
)

// Notification.Type
const (
	NotificationInfo    = "INFO"
	NotificationSuccess = "SUCCESS"
	NotificationWarning = "WARNING"
	NotificationError   = "ERROR"
)

var validStatuses = map[string]bool{
	StatusPendingApproval: true, StatusApproved: true, StatusRejected: true,
	StatusPendingCoordination: true, StatusPendingFinance: true,
	StatusApprovedForPurchase: true, StatusPaid: true,
}

var validProcurement = map[string]bool{
	ProcurementPendiente: true, ProcurementEnTramite: true, ProcurementEntregado: true,
	ProcurementFinalizado: true, ProcurementAnulado: true, ProcurementPostergado: true,
}

func IsValidStatus(s string) bool            { return validStatuses[s] }
func IsValidProcurementStatus(s string) bool { return validProcurement[s] }

func IsValidRole(r string) bool {
	for _, x := range AllRoles {
		if x == r {
			return true
		}
	}
	return false
}
