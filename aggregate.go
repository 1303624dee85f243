package importer

// Combine merges the previews of several documents into one combined view.
//
// It is a pure function of its input and is meant to be recomputed whenever
// the list of documents changes: document counts are bounded by what a user
// picks at once.
//
//   - transactions are concatenated in document order and tagged with their
//     document index and institution;
//   - warnings are prefixed with the document display name;
//   - new securities are deduplicated by ISIN, the first occurrence wins.
//     Entries without ISIN are always kept, a WKN or a name alone is not
//     reliable enough to merge two securities;
//   - potential duplicates are concatenated with their index made global.
func Combine(previews []DocumentPreview) CombinedPreview {
	var c CombinedPreview
	seen := make(map[string]struct{})
	offset := 0
	for doc, p := range previews {
		for _, tx := range p.Transactions {
			c.Transactions = append(c.Transactions, CombinedTransaction{
				ParsedTransaction: tx,
				Document:          doc,
				Institution:       p.Institution,
			})
		}

		for _, w := range p.Warnings {
			c.Warnings = append(c.Warnings, p.Source.Name+": "+w)
		}

		for _, s := range p.NewSecurities {
			isin := NormalizeISIN(s.ISIN)
			if isin == "" {
				c.NewSecurities = append(c.NewSecurities, s)
				continue
			}
			if _, dup := seen[isin]; dup {
				continue
			}
			seen[isin] = struct{}{}
			c.NewSecurities = append(c.NewSecurities, s)
		}

		for _, d := range p.Duplicates {
			d.Index += offset
			c.Duplicates = append(c.Duplicates, d)
		}
		offset += len(p.Transactions)
	}
	return c
}
