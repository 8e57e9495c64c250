package xyzbank

import "github.com/tebeka/selenium"

// Symbolic names of the manager view elements.
const (
	AddCustomerTab    = "add customer tab"
	CustomersTab      = "customers tab"
	FirstNameInput    = "first name input"
	LastNameInput     = "last name input"
	PostCodeInput     = "post code input"
	SubmitCustomer    = "submit customer button"
	CustomerTable     = "customer table"
	CustomerRows      = "customer rows"
	DeleteButtons     = "delete buttons"
	TableHeaderLinks  = "table header links"
	FirstNameHeader   = TableHeaderLinks // first of the header links
	SearchCustomerBox = "search customer input"
)

// Dialog texts of the manager view.
const (
	// AddedAlertPrefix starts the dialog text shown after a customer is
	// added; the new customer ID follows.
	AddedAlertPrefix = "Customer added successfully with customer id :"
	// DuplicateAlert is shown for an already known first and last name.
	DuplicateAlert = "Please check the details. Customer may be duplicate."
)

// Selector is a WebDriver lookup strategy and its value.
type Selector struct {
	By    string
	Value string
}

// Selectors maps symbolic element names to selectors.
type Selectors map[string]Selector

// BankManagerSelectors locates the elements of the manager view of the
// XYZ Bank demo.
var BankManagerSelectors = Selectors{
	AddCustomerTab:    {selenium.ByXPATH, "//button[@ng-click='addCust()']"},
	CustomersTab:      {selenium.ByXPATH, "//button[@ng-click='showCust()']"},
	FirstNameInput:    {selenium.ByXPATH, "//input[@ng-model='fName']"},
	LastNameInput:     {selenium.ByXPATH, "//input[@ng-model='lName']"},
	PostCodeInput:     {selenium.ByXPATH, "//input[@ng-model='postCd']"},
	SubmitCustomer:    {selenium.ByXPATH, "//button[@type='submit'][contains(text(), 'Add Customer')]"},
	CustomerTable:     {selenium.ByCSSSelector, "div.ng-scope table.table"},
	CustomerRows:      {selenium.ByCSSSelector, "div.ng-scope table.table tbody tr"},
	DeleteButtons:     {selenium.ByCSSSelector, "button[ng-click*='deleteCust']"},
	TableHeaderLinks:  {selenium.ByCSSSelector, "div.ng-scope table.table thead tr a"},
	SearchCustomerBox: {selenium.ByXPATH, "//input[@ng-model='searchCustomer']"},
}
