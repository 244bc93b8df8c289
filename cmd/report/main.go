package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/olekukonko/tablewriter"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/muneemjee/ledger/internal/config"
	"github.com/muneemjee/ledger/pkg/store"
	dynamostore "github.com/muneemjee/ledger/pkg/store/dynamodb"
)

// MonthlySummary aggregates a user's transactions for one calendar month.
type MonthlySummary struct {
	Month   string
	Income  float64
	Expense float64
}

func (m MonthlySummary) Net() float64 { return m.Income - m.Expense }

// Command line flags
var (
	configPath = flag.String("config", "", "Path to config file")
	userID     = flag.String("user", "", "User ID to report on")
	outputPath = flag.String("output", "reports", "Directory to store report outputs")
	format     = flag.String("format", "all", "Output format: text, csv, chart, all")
	startDate  = flag.String("start-date", "", "Start date filter (YYYY-MM-DD)")
	endDate    = flag.String("end-date", "", "End date filter (YYYY-MM-DD)")
)

func main() {
	flag.Parse()

	if *userID == "" {
		log.Fatal("User ID is required. Use --user flag to specify the user.")
	}

	if err := os.MkdirAll(*outputPath, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	startTime, endTime := parseDateRange()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.DynamoDB.Region))
	if err != nil {
		log.Fatalf("Failed to load AWS configuration: %v", err)
	}

	st, err := dynamostore.New(awsCfg, dynamostore.Config{
		AccountsTable:     cfg.DynamoDB.AccountsTable,
		TransactionsTable: cfg.DynamoDB.TransactionsTable,
		InvoicesTable:     cfg.DynamoDB.InvoicesTable,
		Endpoint:          cfg.DynamoDB.Endpoint,
	})
	if err != nil {
		log.Fatalf("Failed to create store: %v", err)
	}

	accounts, err := st.ListAccounts(ctx, *userID)
	if err != nil {
		log.Fatalf("Failed to load accounts: %v", err)
	}

	transactions, err := st.ListTransactions(ctx, *userID)
	if err != nil {
		log.Fatalf("Failed to load transactions: %v", err)
	}
	transactions = filterByDate(transactions, startTime, endTime)

	if len(accounts) == 0 && len(transactions) == 0 {
		log.Fatal("No data found for the given user.")
	}

	fmt.Printf("Loaded %d accounts and %d transactions for user %s.\n",
		len(accounts), len(transactions), *userID)

	months := summarizeByMonth(transactions)

	if *format == "text" || *format == "all" {
		generateTextSummary(accounts, months)
	}

	if *format == "csv" || *format == "all" {
		generateCSVReport(months)
	}

	if *format == "chart" || *format == "all" {
		generateCashFlowChart(months)
	}
}

// parseDateRange parses the optional date filter flags.
func parseDateRange() (time.Time, time.Time) {
	var startTime, endTime time.Time

	if *startDate != "" {
		t, err := time.Parse("2006-01-02", *startDate)
		if err != nil {
			log.Fatalf("Invalid start date format. Use YYYY-MM-DD: %v", err)
		}
		startTime = t
	}

	if *endDate != "" {
		t, err := time.Parse("2006-01-02", *endDate)
		if err != nil {
			log.Fatalf("Invalid end date format. Use YYYY-MM-DD: %v", err)
		}
		// Set to end of day
		endTime = t.Add(24*time.Hour - time.Second)
	}

	return startTime, endTime
}

// filterByDate keeps transactions inside the requested window.
func filterByDate(txs []*store.Transaction, start, end time.Time) []*store.Transaction {
	var out []*store.Transaction
	for _, tx := range txs {
		if !start.IsZero() && tx.Date.Before(start) {
			continue
		}
		if !end.IsZero() && tx.Date.After(end) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// summarizeByMonth buckets transactions into per-month income and expense
// totals, sorted chronologically.
func summarizeByMonth(txs []*store.Transaction) []MonthlySummary {
	buckets := make(map[string]*MonthlySummary)

	for _, tx := range txs {
		month := tx.Date.Format("2006-01")
		bucket, ok := buckets[month]
		if !ok {
			bucket = &MonthlySummary{Month: month}
			buckets[month] = bucket
		}

		switch tx.Type {
		case store.Income:
			bucket.Income += tx.Amount
		case store.Expense:
			bucket.Expense += tx.Amount
		}
	}

	months := make([]MonthlySummary, 0, len(buckets))
	for _, bucket := range buckets {
		months = append(months, *bucket)
	}
	sort.Slice(months, func(i, j int) bool {
		return months[i].Month < months[j].Month
	})

	return months
}

// generateTextSummary prints the account balances and monthly cash flow
// tables and saves a markdown copy.
func generateTextSummary(accounts []*store.Account, months []MonthlySummary) {
	fmt.Println("\n=== Account Balances ===")

	accountTable := tablewriter.NewWriter(os.Stdout)
	accountTable.SetHeader([]string{"Account", "Type", "Balance"})
	var total float64
	for _, acct := range accounts {
		accountTable.Append([]string{acct.Name, acct.Type, fmt.Sprintf("%.2f", acct.Balance)})
		total += acct.Balance
	}
	accountTable.SetFooter([]string{"", "Total", fmt.Sprintf("%.2f", total)})
	accountTable.Render()

	fmt.Println("\n=== Monthly Cash Flow ===")

	monthTable := tablewriter.NewWriter(os.Stdout)
	monthTable.SetHeader([]string{"Month", "Income", "Expense", "Net"})
	for _, m := range months {
		monthTable.Append([]string{
			m.Month,
			fmt.Sprintf("%.2f", m.Income),
			fmt.Sprintf("%.2f", m.Expense),
			fmt.Sprintf("%.2f", m.Net()),
		})
	}
	monthTable.Render()

	outputFile := filepath.Join(*outputPath, "summary.md")
	file, err := os.Create(outputFile)
	if err != nil {
		fmt.Printf("Warning: Failed to create summary file: %v\n", err)
		return
	}
	defer file.Close()

	file.WriteString("# Ledger Summary\n\n")
	file.WriteString(fmt.Sprintf("User: %s\n\n", *userID))

	mdTable := tablewriter.NewWriter(file)
	mdTable.SetHeader([]string{"Month", "Income", "Expense", "Net"})
	mdTable.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	mdTable.SetCenterSeparator("|")
	for _, m := range months {
		mdTable.Append([]string{
			m.Month,
			fmt.Sprintf("%.2f", m.Income),
			fmt.Sprintf("%.2f", m.Expense),
			fmt.Sprintf("%.2f", m.Net()),
		})
	}
	mdTable.Render()

	fmt.Printf("Text summary saved to: %s\n", outputFile)
}

// generateCSVReport writes the monthly totals as CSV.
func generateCSVReport(months []MonthlySummary) {
	outputFile := filepath.Join(*outputPath, "cash_flow.csv")
	file, err := os.Create(outputFile)
	if err != nil {
		fmt.Printf("Warning: Failed to create CSV file: %v\n", err)
		return
	}
	defer file.Close()

	file.WriteString("Month,Income,Expense,Net\n")
	for _, m := range months {
		file.WriteString(fmt.Sprintf("%s,%.2f,%.2f,%.2f\n", m.Month, m.Income, m.Expense, m.Net()))
	}

	fmt.Printf("CSV report saved to: %s\n", outputFile)
}

// generateCashFlowChart renders income and expense per month as a bar chart.
func generateCashFlowChart(months []MonthlySummary) {
	if len(months) == 0 {
		return
	}

	incomeColor := drawing.Color{R: 165, G: 235, B: 91, A: 255}
	expenseColor := drawing.Color{R: 250, G: 134, B: 94, A: 255}

	var bars []chart.Value
	for _, m := range months {
		bars = append(bars, chart.Value{
			Label: m.Month + " in",
			Value: m.Income,
			Style: chart.Style{FillColor: incomeColor, StrokeColor: incomeColor, StrokeWidth: 0},
		})
		bars = append(bars, chart.Value{
			Label: m.Month + " out",
			Value: m.Expense,
			Style: chart.Style{FillColor: expenseColor, StrokeColor: expenseColor, StrokeWidth: 0},
		})
	}

	barChart := chart.BarChart{
		Title: "Monthly Cash Flow",
		Background: chart.Style{
			Padding: chart.Box{
				Top:    40,
				Left:   20,
				Right:  20,
				Bottom: 20,
			},
		},
		Width:  1000,
		Height: 500,
		Bars:   bars,
	}
	barChart.YAxis.ValueFormatter = func(v interface{}) string {
		if vf, isFloat := v.(float64); isFloat {
			return fmt.Sprintf("%.2f", vf)
		}
		return ""
	}

	outputFile := filepath.Join(*outputPath, "cash_flow_chart.png")
	f, err := os.Create(outputFile)
	if err != nil {
		fmt.Printf("Warning: Failed to create chart file: %v\n", err)
		return
	}
	defer f.Close()

	if err := barChart.Render(chart.PNG, f); err != nil {
		fmt.Printf("Warning: Failed to render chart: %v\n", err)
		return
	}

	fmt.Printf("Cash flow chart saved to: %s\n", outputFile)
}
