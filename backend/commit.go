package backend

import (
	"context"
	"errors"
	"fmt"

	importer "github.com/etnz/pcs-import"
	"github.com/etnz/pcs-import/store"
)

// ErrPreviewExpired is returned by CommitDocument when the preview the request
// refers to is no longer known. The document must be loaded again.
var ErrPreviewExpired = errors.New("preview expired, load the document again")

func isNotFound(err error) bool { return errors.Is(err, store.ErrNotFound) }

// CommitDocument implements importer.Committer.
//
// Unknown or retired targets fail the whole document. Problems with single
// transactions are reported in the result and the other transactions are
// still imported.
func (l *Local) CommitDocument(ctx context.Context, req importer.CommitRequest) (importer.CommitResult, error) {
	var res importer.CommitResult

	portfolio, err := l.store.Portfolio(ctx, req.PortfolioID)
	if err != nil {
		return res, err
	}
	if portfolio.Retired {
		return res, fmt.Errorf("portfolio %q is retired", portfolio.Name)
	}
	account, err := l.store.Account(ctx, req.AccountID)
	if err != nil {
		return res, err
	}
	if account.Retired {
		return res, fmt.Errorf("account %q is retired", account.Name)
	}

	p, err := l.cachedPreview(req)
	if err != nil {
		return res, err
	}

	var o importer.Overrides
	for i, k := range req.TypeOverrides {
		o.SetType(i, k)
	}
	for i, fee := range req.FeeOverrides {
		o.SetFee(i, fee)
	}

	// securities created by this commit, for those without identifier.
	byName := make(map[string]int64)
	var records []store.Record
	for i, parsed := range p.Transactions {
		tx := o.Resolve(i, parsed)
		line := fmt.Sprintf("transaction %d (%s)", i, tx.Date)

		if tx.Kind == importer.Unknown {
			res.Errors = append(res.Errors, line+": unknown type, set a type to import it")
			continue
		}
		if tx.Currency != account.Currency {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %s amount booked on a %s account", line, tx.Currency, account.Currency))
		}

		var securityID int64
		if tx.HasSecurity() {
			id, created, err := l.security(ctx, tx, req.AutoCreateSecurities, byName)
			if err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", line, err))
				continue
			}
			if created {
				res.SecuritiesCreated++
			}
			securityID = id
		}

		if req.SkipDuplicates {
			dup, err := l.store.HasDuplicate(ctx, req.PortfolioID, store.Fingerprint(tx))
			if err != nil {
				return importer.CommitResult{}, err
			}
			if dup {
				res.Skipped++
				continue
			}
		}

		records = append(records, store.Record{
			PortfolioID: req.PortfolioID,
			AccountID:   req.AccountID,
			SecurityID:  securityID,
			Transaction: tx,
		})
	}

	ids, err := l.store.InsertTransactions(ctx, records)
	if err != nil {
		return importer.CommitResult{}, err
	}
	res.Imported = len(ids)
	l.previews.Delete(req.Token)
	l.logger.Printf("committed %q into portfolio %q: %d imported, %d skipped", req.Path, portfolio.Name, res.Imported, res.Skipped)
	return res, nil
}

// cachedPreview returns the preview req refers to. The document is never
// parsed again: a new parse may not yield the transactions the overrides
// were made for.
func (l *Local) cachedPreview(req importer.CommitRequest) (importer.DocumentPreview, error) {
	v, ok := l.previews.Get(req.Token)
	if !ok {
		l.logger.Printf("no preview %q of %q in cache", req.Token, req.Path)
		return importer.DocumentPreview{}, ErrPreviewExpired
	}
	p := v.(importer.DocumentPreview)
	if p.Source.Path != req.Path {
		return importer.DocumentPreview{}, fmt.Errorf("preview %q is of %q, not %q", req.Token, p.Source.Name, importer.DisplayName(req.Path))
	}
	return p, nil
}

// security returns the id of the security of tx, creating it when allowed.
func (l *Local) security(ctx context.Context, tx importer.ParsedTransaction, create bool, byName map[string]int64) (id int64, created bool, err error) {
	sec, err := l.store.FindSecurity(ctx, tx.ISIN, tx.WKN)
	if err == nil {
		return sec.ID, false, nil
	}
	if !isNotFound(err) {
		return 0, false, err
	}
	noID := tx.ISIN == "" && tx.WKN == ""
	if noID {
		if id, ok := byName[tx.SecurityName]; ok {
			return id, false, nil
		}
	}
	if !create {
		return 0, false, fmt.Errorf("unknown security %q, enable auto-create to add it", securityKey(tx))
	}
	sec, err = l.store.AddSecurity(ctx, store.Security{Name: tx.SecurityName, ISIN: tx.ISIN, WKN: tx.WKN, Currency: tx.Currency})
	if err != nil {
		return 0, false, err
	}
	if noID {
		byName[tx.SecurityName] = sec.ID
	}
	return sec.ID, true, nil
}
