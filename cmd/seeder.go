package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/frahmantamala/salescrm/internal"
	"github.com/frahmantamala/salescrm/internal/access"
	"github.com/frahmantamala/salescrm/internal/contact"
	"github.com/frahmantamala/salescrm/internal/core/identity"
	"github.com/frahmantamala/salescrm/internal/deal"
	"github.com/frahmantamala/salescrm/internal/dealer"
	"github.com/frahmantamala/salescrm/internal/product"
	"github.com/frahmantamala/salescrm/internal/store"
	"github.com/frahmantamala/salescrm/internal/subsidiary"
	"github.com/frahmantamala/salescrm/internal/task"
	"github.com/frahmantamala/salescrm/internal/user"
	userPostgres "github.com/frahmantamala/salescrm/internal/user/postgres"
)

var seedTenant string

// seedNamespace keeps record ids stable across runs so reseeding overwrites.
var seedNamespace = uuid.MustParse("7d0f3f7e-3c56-4c1e-9a43-5b8f3d3c2a10")

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the store with a sample sales team",
	Long: `Seed one tenant with an admin, a manager with one direct report, an unassigned
rep and a handful of records of every type owned across the team.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		deps, err := initializeDependencies(ctx)
		if err != nil {
			return err
		}
		defer deps.Close()

		if deps.Config.Store.Backend == internal.StoreMemory {
			deps.Logger.Warn("seeding the memory store only lasts for this process")
		}
		if clearData {
			if err := clearTenant(ctx, deps, seedTenant); err != nil {
				return err
			}
		}

		if err := seedUsers(ctx, deps, seedTenant); err != nil {
			return err
		}
		n, err := seedRecords(ctx, deps.Store, seedTenant)
		if err != nil {
			return err
		}
		deps.Logger.Info("seed complete", "tenant", seedTenant, "records", n)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedTenant, "tenant", "t1", "tenant to seed")
}

func seedUsers(ctx context.Context, deps *Dependencies, tenant string) error {
	now := time.Now().UTC()
	team := []*user.User{
		{ID: "a1", Email: "admin@example.com", Name: "Alya Admin", Role: identity.RoleAdmin},
		{ID: "m1", Email: "manager@example.com", Name: "Mira Manager", Role: identity.RoleSalesManager},
		{ID: "r1", Email: "rep.one@example.com", Name: "Raka Rep", Role: identity.RoleSalesRep, ReportingTo: "m1"},
		{ID: "r2", Email: "rep.two@example.com", Name: "Rani Rep", Role: identity.RoleSalesRep},
	}

	for _, u := range team {
		u.TenantID = tenant
		u.CreatedAt = now
		u.UpdatedAt = now

		var err error
		if dir, ok := deps.Users.(*userPostgres.Directory); ok {
			err = dir.Save(ctx, u)
		} else {
			err = deps.Store.Put(ctx, access.UsersTable, user.ToItem(u))
		}
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.ID, err)
		}
		deps.Logger.Info("Seeded user", "id", u.ID, "role", u.Role, "reporting_to", u.ReportingTo)
	}
	return nil
}

type seedRecord struct {
	table     string
	ownerAttr string
	key       string
	owner     string
	attrs     store.Item
}

func seedRecords(ctx context.Context, s store.Writer, tenant string) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	records := []seedRecord{
		{deal.Definition.Table, deal.OwnerAttr, "D1", "r1", store.Item{"dealName": "Acme expansion", "accountName": "Acme Corp", "stage": "Negotiation", "amount": 125000.0, "probability": 60}},
		{deal.Definition.Table, deal.OwnerAttr, "D2", "r2", store.Item{"dealName": "Globex pilot", "accountName": "Globex", "stage": "Qualification", "amount": 18000.0, "probability": 20}},
		{deal.Definition.Table, deal.OwnerAttr, "D3", "m1", store.Item{"dealName": "Initech renewal", "accountName": "Initech", "stage": "Closed Won", "amount": 54000.0, "probability": 100}},
		{product.Definition.Table, product.OwnerAttr, "P1", "r1", store.Item{"productName": "Fleet tracker", "productCode": "FT-100", "category": "Hardware", "unitPrice": 249.0, "quantityInStock": 40}},
		{product.Definition.Table, product.OwnerAttr, "P2", "m1", store.Item{"productName": "Route planner", "productCode": "RP-200", "category": "Software", "unitPrice": 99.0, "quantityInStock": 0}},
		{task.Definition.Table, task.OwnerAttr, "T1", "r1", store.Item{"subject": "Send Acme proposal", "status": "Open", "priority": "High"}},
		{task.Definition.Table, task.OwnerAttr, "T2", "r2", store.Item{"subject": "Book Globex demo", "status": "In Progress", "priority": "Normal"}},
		{contact.Definition.Table, contact.OwnerAttr, "C1", "r1", store.Item{"firstName": "Wile", "lastName": "Coyote", "email": "wile@acme.example", "accountName": "Acme Corp", "leadSource": "Referral"}},
		{contact.Definition.Table, contact.OwnerAttr, "C2", "r2", store.Item{"firstName": "Hank", "lastName": "Scorpio", "email": "hank@globex.example", "accountName": "Globex", "leadSource": "Web"}},
		{dealer.Definition.Table, dealer.OwnerAttr, "DL1", "m1", store.Item{"dealerName": "Northwind Motors", "region": "North", "status": "Active", "creditLimit": 500000.0}},
		{dealer.Definition.Table, dealer.OwnerAttr, "DL2", "r2", store.Item{"dealerName": "Southside Auto", "region": "South", "status": "Prospect", "creditLimit": 75000.0}},
		{subsidiary.Definition.Table, subsidiary.OwnerAttr, "S1", "a1", store.Item{"subsidiaryName": "Acme Asia", "country": "SG", "parentCompany": "Acme Corp", "revenue": 3200000.0}},
		{subsidiary.Definition.Table, subsidiary.OwnerAttr, "S2", "r1", store.Item{"subsidiaryName": "Acme Europe", "country": "DE", "parentCompany": "Acme Corp", "revenue": 2100000.0}},
	}

	for _, r := range records {
		item := store.Item{
			"id":        uuid.NewSHA1(seedNamespace, []byte(tenant+"/"+r.table+"/"+r.key)).String(),
			"tenantId":  tenant,
			r.ownerAttr: r.owner,
			"isDeleted": false,
			"createdAt": now,
			"createdBy": r.owner,
			"updatedAt": now,
			"updatedBy": r.owner,
		}
		for k, v := range r.attrs {
			item[k] = v
		}
		if err := s.Put(ctx, r.table, item); err != nil {
			return 0, fmt.Errorf("failed to seed %s %s: %w", r.table, r.key, err)
		}
	}
	return len(records), nil
}

// clearTenant removes the tenant's rows from the relational tables. Other backends
// are overwritten in place since seeded ids are stable.
func clearTenant(ctx context.Context, deps *Dependencies, tenant string) error {
	if deps.DB == nil {
		deps.Logger.Warn("--clear only applies to the postgres store and sql directory")
		return nil
	}
	if deps.Config.Store.Backend == internal.StorePostgres {
		res, err := deps.DB.ExecContext(ctx, `DELETE FROM items WHERE attrs->>'tenantId' = $1`, tenant)
		if err != nil {
			return fmt.Errorf("failed to clear items: %w", err)
		}
		logRemoved(deps.Logger, "items", res)
	}
	if deps.Config.Directory.Source == internal.DirectorySQL {
		res, err := deps.DB.ExecContext(ctx, `DELETE FROM users WHERE tenant_id = $1`, tenant)
		if err != nil {
			return fmt.Errorf("failed to clear users: %w", err)
		}
		logRemoved(deps.Logger, "users", res)
	}
	return nil
}

func logRemoved(lg *slog.Logger, table string, res interface{ RowsAffected() (int64, error) }) {
	n, _ := res.RowsAffected()
	lg.Info("Cleared existing data", "table", table, "rows", n)
}
