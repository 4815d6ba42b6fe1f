package ledger

import "context"

// ListCompanies returns active companies ordered by name.
func (c *Core) ListCompanies(ctx context.Context) ([]Company, error) {
	if cached, ok := c.companies.get(); ok {
		return cached, nil
	}

	rows, err := c.QueryContext(ctx, "SELECT id, name, business_type FROM companies WHERE active = 1 ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := []Company{}
	for rows.Next() {
		var company Company
		if err := rows.Scan(&company.ID, &company.Name, &company.BusinessType); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan company", err)
		}
		companies = append(companies, company)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapRowsErr(err)
	}

	c.companies.set(companies)
	return companies, nil
}

// RefreshCompanies drops the cached company list so the next read hits the
// database. Needed after companies are edited outside the application.
func (c *Core) RefreshCompanies() {
	c.companies.invalidate()
}

func (c *Core) companyExists(ctx context.Context, id int64) (bool, error) {
	companies, err := c.ListCompanies(ctx)
	if err != nil {
		return false, err
	}
	for _, company := range companies {
		if company.ID == id {
			return true, nil
		}
	}
	return false, nil
}
