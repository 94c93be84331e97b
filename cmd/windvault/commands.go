package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"
)

const (
	jsonFlagDescription = "output json"
)

var errHelp = errors.New("help requested")

type commonFlags struct {
	socketPath string
	token      string
	jsonOutput bool
	timeout    time.Duration
}

func (c *commonFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.socketPath, "socket", c.socketPath, "path to windvaultd socket")
	fs.StringVar(&c.token, "token", c.token, "bearer token")
	fs.BoolVar(&c.jsonOutput, "json", c.jsonOutput, jsonFlagDescription)
}

// wantJSON reports whether output should be raw JSON. Piped output gets JSON
// so the CLI composes with jq and scripts without an explicit --json.
func (c commonFlags) wantJSON() bool {
	if c.jsonOutput {
		return true
	}
	return !isatty.IsTerminal(os.Stdout.Fd())
}

func (c commonFlags) client() *apiClient {
	return newAPIClient(c.socketPath, c.token, c.timeout)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string, usage func(), help *bool) error {
	fs.Usage = usage
	if err := fs.Parse(args); err != nil {
		usage()
		return err
	}
	if help != nil && *help {
		usage()
		return errHelp
	}
	return nil
}

func prettyPrintJSON(w io.Writer, payload []byte) error {
	var buf any
	if err := json.Unmarshal(payload, &buf); err != nil {
		_, writeErr := w.Write(payload)
		return writeErr
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(buf)
}

func runStatus(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("status")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/status", nil)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var resp statusResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return err
	}
	fmt.Printf("tenant:   %s\n", resp.Tenant)
	fmt.Printf("version:  %s\n", resp.Version)
	fmt.Printf("windows:  %d total, %d assigned, %d free\n", resp.Windows.Total, resp.Windows.Assigned, resp.Windows.Free)
	fmt.Printf("requests: %d pending\n", resp.Requests)
	for status, n := range resp.Orders {
		fmt.Printf("orders.%s: %d\n", strings.ToLower(status), n)
	}
	if resp.LastSync != "" {
		fmt.Printf("sync:     %s partial=%v\n", resp.LastSync, resp.Partial)
	}
	return nil
}

func runOrderCommand(ctx context.Context, args []string, base commonFlags) error {
	if len(args) == 0 {
		printOrderUsage()
		return nil
	}
	switch args[0] {
	case "list":
		return runOrderList(ctx, args[1:], base)
	case "show":
		return runOrderShow(ctx, args[1:], base)
	case "create":
		return runOrderCreate(ctx, args[1:], base)
	case "complete":
		return runOrderComplete(ctx, args[1:], base)
	case "pause":
		return runOrderPause(ctx, args[1:], base)
	case "resume":
		return runOrderResume(ctx, args[1:], base)
	case "delete":
		return runOrderDelete(ctx, args[1:], base)
	default:
		printOrderUsage()
		return fmt.Errorf("unknown order command %q", args[0])
	}
}

func runOrderList(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("order list")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printOrderUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/orders", nil)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var orders []orderResponse
	if err := json.Unmarshal(payload, &orders); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTAFF\tAMOUNT\tSTATUS\tCOMPLETED\tREMAINING\tLOSS")
	for _, order := range orders {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%s\t%.4f\t%.4f\t%d\n",
			order.ID, order.StaffID, order.Amount, order.Status,
			order.CompletedAmount, order.RemainingAmount, order.Loss)
	}
	return w.Flush()
}

func runOrderShow(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("order show")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printOrderUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printOrderUsage()
		return errors.New("order id is required")
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/orders/"+rest[0], nil)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var order orderResponse
	if err := json.Unmarshal(payload, &order); err != nil {
		return err
	}
	printOrder(order)
	return nil
}

func runOrderCreate(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("order create")
	opts := base
	opts.bind(fs)
	var staffID string
	var amount float64
	var date string
	var snapshots stringList
	var help bool
	fs.StringVar(&staffID, "staff", "", "staff id")
	fs.Float64Var(&amount, "amount", 0, "order amount in units")
	fs.StringVar(&date, "date", "", "order date (rfc3339)")
	fs.Var(&snapshots, "snapshot", "window snapshot as <window_id>=<balance> (repeatable)")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printOrderUsage, &help); err != nil {
		return err
	}
	if staffID == "" || amount <= 0 {
		printOrderUsage()
		return errors.New("staff and a positive amount are required")
	}
	req := orderCreateRequest{StaffID: staffID, Amount: amount, Date: date}
	for _, raw := range snapshots {
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid snapshot %q, want <window_id>=<balance>", raw)
		}
		balance, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid snapshot balance %q: %w", parts[1], err)
		}
		req.Snapshots = append(req.Snapshots, windowSnapshot{WindowID: parts[0], Balance: balance})
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/orders", req)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var order orderResponse
	if err := json.Unmarshal(payload, &order); err != nil {
		return err
	}
	printOrder(order)
	return nil
}

func runOrderComplete(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("order complete")
	opts := base
	opts.bind(fs)
	var results stringList
	var help bool
	fs.Var(&results, "result", "window result as <window_id>=<consumed>:<end_balance> (repeatable)")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printOrderUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printOrderUsage()
		return errors.New("order id is required")
	}
	req := orderCompleteRequest{Results: []windowResult{}}
	for _, raw := range results {
		parsed, err := parseWindowResult(raw)
		if err != nil {
			return err
		}
		req.Results = append(req.Results, parsed)
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/orders/"+rest[0]+"/complete", req)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var order orderResponse
	if err := json.Unmarshal(payload, &order); err != nil {
		return err
	}
	printOrder(order)
	return nil
}

func runOrderPause(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("order pause")
	opts := base
	opts.bind(fs)
	var completed float64
	var help bool
	fs.Float64Var(&completed, "completed", 0, "cumulative completed amount")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printOrderUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printOrderUsage()
		return errors.New("order id is required")
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/orders/"+rest[0]+"/pause", orderPauseRequest{CompletedAmount: completed})
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var order orderResponse
	if err := json.Unmarshal(payload, &order); err != nil {
		return err
	}
	printOrder(order)
	return nil
}

func runOrderResume(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("order resume")
	opts := base
	opts.bind(fs)
	var staffID string
	var help bool
	fs.StringVar(&staffID, "staff", "", "reassign to staff id")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printOrderUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printOrderUsage()
		return errors.New("order id is required")
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/orders/"+rest[0]+"/resume", orderResumeRequest{StaffID: staffID})
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var order orderResponse
	if err := json.Unmarshal(payload, &order); err != nil {
		return err
	}
	printOrder(order)
	return nil
}

func runOrderDelete(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("order delete")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printOrderUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printOrderUsage()
		return errors.New("order id is required")
	}
	if _, err := opts.client().doJSON(ctx, http.MethodDelete, "/v1/orders/"+rest[0], nil); err != nil {
		return err
	}
	fmt.Printf("order %s deleted\n", rest[0])
	return nil
}

func runWindowCommand(ctx context.Context, args []string, base commonFlags) error {
	if len(args) == 0 {
		printWindowUsage()
		return nil
	}
	switch args[0] {
	case "list":
		return runWindowList(ctx, args[1:], base)
	case "show":
		return runWindowShow(ctx, args[1:], base)
	case "assign":
		return runWindowAssign(ctx, args[1:], base)
	case "recharge":
		return runWindowRecharge(ctx, args[1:], base)
	default:
		printWindowUsage()
		return fmt.Errorf("unknown window command %q", args[0])
	}
}

func runWindowList(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("window list")
	opts := base
	opts.bind(fs)
	var machineID string
	var help bool
	fs.StringVar(&machineID, "machine", "", "filter by machine id")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printWindowUsage, &help); err != nil {
		return err
	}
	path := "/v1/windows"
	if machineID != "" {
		path += "?machine_id=" + machineID
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var windows []windowResponse
	if err := json.Unmarshal(payload, &windows); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMACHINE\tNO\tBALANCE\tHOLDER")
	for _, win := range windows {
		holder := win.UserID
		if holder == "" {
			holder = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", win.ID, win.MachineID, win.WindowNumber, win.GoldBalance, holder)
	}
	return w.Flush()
}

func runWindowShow(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("window show")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printWindowUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printWindowUsage()
		return errors.New("window id is required")
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/windows/"+rest[0], nil)
	if err != nil {
		return err
	}
	return prettyPrintJSON(os.Stdout, payload)
}

func runWindowAssign(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("window assign")
	opts := base
	opts.bind(fs)
	var staffID string
	var help bool
	fs.StringVar(&staffID, "staff", "", "staff id (empty releases the window)")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printWindowUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printWindowUsage()
		return errors.New("window id is required")
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/windows/"+rest[0]+"/assign", windowAssignRequest{StaffID: staffID})
	if err != nil {
		return err
	}
	return prettyPrintJSON(os.Stdout, payload)
}

func runWindowRecharge(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("window recharge")
	opts := base
	opts.bind(fs)
	var delta int64
	var help bool
	fs.Int64Var(&delta, "delta", 0, "signed balance delta in coins")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printWindowUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printWindowUsage()
		return errors.New("window id is required")
	}
	if delta == 0 {
		printWindowUsage()
		return errors.New("delta must be non-zero")
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/windows/"+rest[0]+"/recharge", windowRechargeRequest{Delta: delta})
	if err != nil {
		return err
	}
	return prettyPrintJSON(os.Stdout, payload)
}

func runMachineCommand(ctx context.Context, args []string, base commonFlags) error {
	if len(args) == 0 {
		printMachineUsage()
		return nil
	}
	switch args[0] {
	case "list":
		return runMachineList(ctx, args[1:], base)
	case "buy":
		return runMachineBuy(ctx, args[1:], base)
	case "delete":
		return runMachineDelete(ctx, args[1:], base)
	default:
		printMachineUsage()
		return fmt.Errorf("unknown machine command %q", args[0])
	}
}

func runMachineList(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("machine list")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printMachineUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/machines", nil)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var machines []machineResponse
	if err := json.Unmarshal(payload, &machines); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPROVIDER\tWINDOWS\tCREATED")
	for _, machine := range machines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", machine.ID, machine.Name, machine.Provider, machine.Windows, machine.CreatedAt)
	}
	return w.Flush()
}

func runMachineBuy(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("machine buy")
	opts := base
	opts.bind(fs)
	var name, provider, note string
	var count int
	var balance int64
	var cost float64
	var help bool
	fs.StringVar(&name, "name", "", "machine name")
	fs.StringVar(&provider, "provider", "", "cloud provider")
	fs.IntVar(&count, "count", 0, "number of windows to create")
	fs.Int64Var(&balance, "balance", 0, "initial gold balance per window in coins")
	fs.Float64Var(&cost, "cost", 0, "purchase cost")
	fs.StringVar(&note, "note", "", "purchase note")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printMachineUsage, &help); err != nil {
		return err
	}
	if name == "" || count <= 0 {
		printMachineUsage()
		return errors.New("name and a positive count are required")
	}
	req := machinePurchaseRequest{
		Name:           name,
		Provider:       provider,
		WindowCount:    count,
		InitialBalance: balance,
		Cost:           cost,
		Note:           note,
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/machines", req)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var resp machinePurchaseResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return err
	}
	fmt.Printf("machine %s created with %d windows\n", resp.Machine.ID, len(resp.WindowIDs))
	return nil
}

func runMachineDelete(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("machine delete")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printMachineUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printMachineUsage()
		return errors.New("machine id is required")
	}
	payload, err := opts.client().doJSON(ctx, http.MethodDelete, "/v1/machines/"+rest[0], nil)
	if err != nil {
		return err
	}
	return prettyPrintJSON(os.Stdout, payload)
}

func runRequestCommand(ctx context.Context, args []string, base commonFlags) error {
	if len(args) == 0 {
		printRequestUsage()
		return nil
	}
	switch args[0] {
	case "submit":
		return runRequestSubmit(ctx, args[1:], base)
	case "list":
		return runRequestList(ctx, args[1:], base)
	case "process":
		return runRequestProcess(ctx, args[1:], base)
	default:
		printRequestUsage()
		return fmt.Errorf("unknown request command %q", args[0])
	}
}

func runRequestSubmit(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("request submit")
	opts := base
	opts.bind(fs)
	var reqType, windowID string
	var help bool
	fs.StringVar(&reqType, "type", "", "request type (apply or release)")
	fs.StringVar(&windowID, "window", "", "target window id")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printRequestUsage, &help); err != nil {
		return err
	}
	if reqType == "" {
		printRequestUsage()
		return errors.New("type is required")
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/requests", requestSubmitRequest{Type: reqType, WindowID: windowID})
	if err != nil {
		return err
	}
	return prettyPrintJSON(os.Stdout, payload)
}

func runRequestList(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("request list")
	opts := base
	opts.bind(fs)
	var status string
	var help bool
	fs.StringVar(&status, "status", "", "filter by status (pending, approved, rejected)")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printRequestUsage, &help); err != nil {
		return err
	}
	path := "/v1/requests"
	if status != "" {
		path += "?status=" + status
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var requests []requestResponse
	if err := json.Unmarshal(payload, &requests); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTAFF\tTYPE\tWINDOW\tSTATUS\tPROCESSED BY")
	for _, req := range requests {
		window := req.WindowID
		if window == "" {
			window = "-"
		}
		processedBy := req.ProcessedBy
		if processedBy == "" {
			processedBy = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", req.ID, req.StaffName, req.Type, window, req.Status, processedBy)
	}
	return w.Flush()
}

func runRequestProcess(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("request process")
	opts := base
	opts.bind(fs)
	var approve, reject bool
	var help bool
	fs.BoolVar(&approve, "approve", false, "approve the request")
	fs.BoolVar(&reject, "reject", false, "reject the request")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printRequestUsage, &help); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		printRequestUsage()
		return errors.New("request id is required")
	}
	if approve == reject {
		printRequestUsage()
		return errors.New("exactly one of --approve or --reject is required")
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/requests/"+rest[0]+"/process", requestProcessRequest{Approved: approve})
	if err != nil {
		return err
	}
	return prettyPrintJSON(os.Stdout, payload)
}

func runStaffCommand(ctx context.Context, args []string, base commonFlags) error {
	if len(args) == 0 {
		printStaffUsage()
		return nil
	}
	switch args[0] {
	case "list":
		return runStaffList(ctx, args[1:], base)
	default:
		printStaffUsage()
		return fmt.Errorf("unknown staff command %q", args[0])
	}
}

func runStaffList(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("staff list")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printStaffUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, "/v1/staff", nil)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var staff []staffResponse
	if err := json.Unmarshal(payload, &staff); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCREATED")
	for _, member := range staff {
		fmt.Fprintf(w, "%s\t%s\t%s\n", member.ID, member.Name, member.CreatedAt)
	}
	return w.Flush()
}

func runEvents(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("events")
	opts := base
	opts.bind(fs)
	var limit int
	var help bool
	fs.IntVar(&limit, "limit", 0, "maximum events to return")
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printUsage, &help); err != nil {
		return err
	}
	path := "/v1/events"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	payload, err := opts.client().doJSON(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var events []eventResponse
	if err := json.Unmarshal(payload, &events); err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TS\tKIND\tORDER\tWINDOW\tMSG")
	for _, event := range events {
		orderID := event.OrderID
		if orderID == "" {
			orderID = "-"
		}
		windowID := event.WindowID
		if windowID == "" {
			windowID = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", event.TS, event.Kind, orderID, windowID, event.Msg)
	}
	return w.Flush()
}

func runSync(ctx context.Context, args []string, base commonFlags) error {
	fs := newFlagSet("sync")
	opts := base
	opts.bind(fs)
	var help bool
	fs.BoolVar(&help, "help", false, "show help")
	fs.BoolVar(&help, "h", false, "show help")
	if err := parseFlags(fs, args, printUsage, &help); err != nil {
		return err
	}
	payload, err := opts.client().doJSON(ctx, http.MethodPost, "/v1/sync/reload", nil)
	if err != nil {
		return err
	}
	if opts.wantJSON() {
		return prettyPrintJSON(os.Stdout, payload)
	}
	var resp syncResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return err
	}
	fmt.Printf("synced tenant %s at %s partial=%v\n", resp.Tenant, resp.LastSync, resp.Partial)
	return nil
}

func printOrder(order orderResponse) {
	fmt.Printf("id:        %s\n", order.ID)
	fmt.Printf("staff:     %s\n", order.StaffID)
	fmt.Printf("amount:    %.4f\n", order.Amount)
	fmt.Printf("status:    %s\n", order.Status)
	fmt.Printf("completed: %.4f\n", order.CompletedAmount)
	fmt.Printf("remaining: %.4f\n", order.RemainingAmount)
	fmt.Printf("consumed:  %d coins\n", order.TotalConsumed)
	fmt.Printf("loss:      %d coins\n", order.Loss)
	if len(order.History) > 0 {
		fmt.Println("history:")
		for _, entry := range order.History {
			fmt.Printf("  %s (%s) %.4f %s .. %s\n", entry.StaffName, entry.StaffID, entry.Amount, entry.StartTime, entry.EndTime)
		}
	}
}

// parseWindowResult parses "<window_id>=<consumed>:<end_balance>".
func parseWindowResult(raw string) (windowResult, error) {
	parts := strings.SplitN(raw, "=", 2)
	if len(parts) != 2 {
		return windowResult{}, fmt.Errorf("invalid result %q, want <window_id>=<consumed>:<end_balance>", raw)
	}
	nums := strings.SplitN(parts[1], ":", 2)
	if len(nums) != 2 {
		return windowResult{}, fmt.Errorf("invalid result %q, want <window_id>=<consumed>:<end_balance>", raw)
	}
	consumed, err := strconv.ParseInt(nums[0], 10, 64)
	if err != nil {
		return windowResult{}, fmt.Errorf("invalid consumed %q: %w", nums[0], err)
	}
	endBalance, err := strconv.ParseInt(nums[1], 10, 64)
	if err != nil {
		return windowResult{}, fmt.Errorf("invalid end balance %q: %w", nums[1], err)
	}
	return windowResult{WindowID: parts[0], Consumed: consumed, EndBalance: endBalance}, nil
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func printOrderUsage() {
	fmt.Fprintln(os.Stdout, "Usage: windvault order <list|show|create|complete|pause|resume|delete> [flags]")
}

func printWindowUsage() {
	fmt.Fprintln(os.Stdout, "Usage: windvault window <list|show|assign|recharge> [flags]")
}

func printMachineUsage() {
	fmt.Fprintln(os.Stdout, "Usage: windvault machine <list|buy|delete> [flags]")
}

func printRequestUsage() {
	fmt.Fprintln(os.Stdout, "Usage: windvault request <submit|list|process> [flags]")
}

func printStaffUsage() {
	fmt.Fprintln(os.Stdout, "Usage: windvault staff <list> [flags]")
}
