/*
Package wallet exposes the read side of a user's wallet.

The wallet service handles:
- Balance lookups
- Transaction history with type and status filters
- Beneficiary history of bank and in-app transfers
- Single transaction lookup scoped to its owner

Usage:

	svc := wallet.NewService(store, logger, recorder)

	// Current balance
	w, err := svc.GetWallet(ctx, userID)

	// Second page of successful purchases
	page, err := svc.History(ctx, userID, wallet.HistoryQuery{
	    Type:   models.TransactionTypePurchase,
	    Status: models.StatusSuccess,
	    Page:   2,
	    Limit:  20,
	})

Balance changes never go through this package. They happen inside the
settlement, reconciler and transfer services, under the wallet row lock.
*/
package wallet
