package dto

import (
	"strings"
)

// Remote collection folders.
const (
	CustomersFolder = "customers"
	PaymentsFolder  = "payments"

	profileFile  = "profile.json"
	ordersFolder = "orders"
	jsonExt      = ".json"
)

// CustomerPath returns the remote path of a customer profile.
func CustomerPath(customerID string) string {
	return CustomersFolder + "/" + customerID + "/" + profileFile
}

// OrderPath returns the remote path of an order document.
func OrderPath(customerID, orderID string) string {
	return CustomersFolder + "/" + customerID + "/" + ordersFolder + "/" + orderID + jsonExt
}

// PaymentPath returns the remote path of a payment document.
func PaymentPath(paymentID string) string {
	return PaymentsFolder + "/" + paymentID + jsonExt
}

// ParseCustomerPath extracts the customer id from customers/{id}/profile.json.
func ParseCustomerPath(path string) (string, bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 3 || parts[0] != CustomersFolder || parts[2] != profileFile || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// ParseOrderPath extracts customer and order ids from customers/{cid}/orders/{id}.json.
func ParseOrderPath(path string) (customerID, orderID string, ok bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 4 || parts[0] != CustomersFolder || parts[2] != ordersFolder {
		return "", "", false
	}
	orderID, found := strings.CutSuffix(parts[3], jsonExt)
	if !found || orderID == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], orderID, true
}

// ParsePaymentPath extracts the payment id from payments/{id}.json.
func ParsePaymentPath(path string) (string, bool) {
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] != PaymentsFolder {
		return "", false
	}
	paymentID, found := strings.CutSuffix(parts[1], jsonExt)
	if !found || paymentID == "" {
		return "", false
	}
	return paymentID, true
}
