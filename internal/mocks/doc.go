// Package mocks provides function-field mocks of the service interfaces,
// shared by the handler and service tests.
//
// Each mock returns its default fields unless the matching Fn field is set,
// and records calls for later assertions:
//
//	loans := &mocks.MockLoanService{
//	    GrantFn: func(ctx context.Context, user, barcode string) (*domain.Loan, error) {
//	        return nil, loan.NewDeniedError(availability)
//	    },
//	}
package mocks
