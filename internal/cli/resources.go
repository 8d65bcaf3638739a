package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/apiclient"
	"github.com/oxyadmin/oxyadmin/internal/console"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

// kindCommands describes how one resource kind is exposed on the command
// line.
type kindCommands[T resource.Record, S any] struct {
	kind    resource.Kind
	aliases []string
	verb    string
	pick    func(*console.Console) *console.Resource[T, S]
	collect func(*apiclient.Client) *apiclient.Collection[T, S]
	spec    func(T) S
	// deps are loaded first so name columns can resolve ids.
	deps []resource.Kind
}

var (
	agentCommands = kindCommands[resource.Agent, resource.AgentSpec]{
		kind:    resource.KindAgent,
		aliases: []string{"agent", "ag"},
		verb:    "test",
		pick:    func(c *console.Console) *console.Resource[resource.Agent, resource.AgentSpec] { return c.Agents },
		collect: (*apiclient.Client).Agents,
		spec:    resource.Agent.Spec,
		deps:    []resource.Kind{resource.KindTool},
	}
	toolCommands = kindCommands[resource.Tool, resource.ToolSpec]{
		kind:    resource.KindTool,
		aliases: []string{"tool"},
		verb:    "test",
		pick:    func(c *console.Console) *console.Resource[resource.Tool, resource.ToolSpec] { return c.Tools },
		collect: (*apiclient.Client).Tools,
		spec:    resource.Tool.Spec,
	}
	workflowCommands = kindCommands[resource.Workflow, resource.WorkflowSpec]{
		kind:    resource.KindWorkflow,
		aliases: []string{"workflow", "wf"},
		verb:    "run",
		pick:    func(c *console.Console) *console.Resource[resource.Workflow, resource.WorkflowSpec] { return c.Workflows },
		collect: (*apiclient.Client).Workflows,
		spec:    resource.Workflow.Spec,
		deps:    []resource.Kind{resource.KindAgent},
	}
	masCommands = kindCommands[resource.MAS, resource.MASSpec]{
		kind:    resource.KindMAS,
		aliases: []string{"mas-instance"},
		verb:    "query",
		pick:    func(c *console.Console) *console.Resource[resource.MAS, resource.MASSpec] { return c.MAS },
		collect: (*apiclient.Client).MAS,
		spec:    resource.MAS.Spec,
	}
)

func init() {
	rootCmd.AddCommand(agentCommands.build(), toolCommands.build(), workflowCommands.build(), masCommands.build())
}

// heading is the title printed above a listing.
func heading(kind resource.Kind) string {
	if kind == resource.KindMAS {
		return "MAS instances"
	}
	return kind.Title() + "s"
}

func (k kindCommands[T, S]) connect(cmd *cobra.Command) (*apiclient.Client, error) {
	conn, err := resolveConnection(cmd, "")
	if err != nil {
		return nil, err
	}
	return conn.client(nil), nil
}

func (k kindCommands[T, S]) build() *cobra.Command {
	plural := k.kind.Plural()
	parent := &cobra.Command{
		Use:     plural,
		Aliases: k.aliases,
		Short:   fmt.Sprintf("Manage %s", plural),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   fmt.Sprintf("List %s", plural),
		Args:    cobra.NoArgs,
		RunE:    k.runList,
	}
	list.Flags().String("search", "", "Case-insensitive match on name or description")
	if len(console.Categories(k.kind)) > 1 {
		list.Flags().String("type", "", "Only show this type")
	}
	list.Flags().Bool("json", false, "Print the raw records")

	get := &cobra.Command{
		Use:     "get <id>",
		Aliases: []string{"show"},
		Short:   fmt.Sprintf("Show one %s", k.kind),
		Args:    cobra.ExactArgs(1),
		RunE:    k.runGet,
	}

	create := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Create a %s from JSON", k.kind),
		Args:  cobra.NoArgs,
		RunE:  k.runCreate,
	}
	update := &cobra.Command{
		Use:   "update <id>",
		Short: fmt.Sprintf("Replace the writable fields of a %s from JSON", k.kind),
		Args:  cobra.ExactArgs(1),
		RunE:  k.runUpdate,
	}
	for _, c := range []*cobra.Command{create, update} {
		c.Flags().String("data", "", "JSON body")
		c.Flags().String("file", "", "Read the JSON body from a file ('-' for stdin)")
	}

	del := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   fmt.Sprintf("Delete a %s", k.kind),
		Args:    cobra.ExactArgs(1),
		RunE:    k.runDelete,
	}
	del.Flags().BoolP("yes", "y", false, "Confirm the deletion")

	parent.AddCommand(list, get, create, update, del)

	if k.verb != "" {
		action := &cobra.Command{
			Use:   k.verb + " <id>",
			Short: fmt.Sprintf("%s a %s with the given input", strings.ToUpper(k.verb[:1])+k.verb[1:], k.kind),
			Args:  cobra.ExactArgs(1),
			RunE:  k.runAction,
		}
		action.Flags().String("input", "", "Input text or JSON object")
		parent.AddCommand(action)
	}
	if k.kind == resource.KindWorkflow {
		parent.AddCommand(&cobra.Command{
			Use:   "validate <id>",
			Short: "Check a workflow definition",
			Args:  cobra.ExactArgs(1),
			RunE:  k.runValidate,
		})
	}
	if k.kind == resource.KindMAS {
		parent.AddCommand(&cobra.Command{
			Use:   "start <id>",
			Short: "Start an instance so it accepts queries",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return k.runLifecycle(cmd, args[0], true) },
		}, &cobra.Command{
			Use:   "stop <id>",
			Short: "Stop a running instance",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return k.runLifecycle(cmd, args[0], false) },
		})
	}
	return parent
}

func (k kindCommands[T, S]) runList(cmd *cobra.Command, args []string) error {
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}
	for _, dep := range k.deps {
		d.run(d.console.Reload(dep))
	}
	r := k.pick(d.console)
	mark := d.mark()
	d.run(r.Reload())
	if err := d.failure(mark); err != nil && !r.ShowingDemo() {
		return fmt.Errorf("listing %s: %w", k.kind.Plural(), err)
	}

	var f console.Filter
	f.Query, _ = cmd.Flags().GetString("search")
	if cmd.Flags().Lookup("type") != nil {
		f.Category, _ = cmd.Flags().GetString("type")
	}
	r.SetFilter(f)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(console.Apply(f, r.Store.All()))
	}

	printHeader(heading(k.kind))
	if r.ShowingDemo() {
		fmt.Printf("  %sBackend unavailable, showing demo data.%s\n", colorYellow, colorReset)
	}
	rows := r.Rows()
	if len(rows) == 1 && rows[0].Placeholder {
		fmt.Printf("  %s%s%s\n\n", colorDim, rows[0].Cells[0], colorReset)
		return nil
	}

	titles := r.Titles()
	widths := r.Widths()
	headers := append([]string{"ID"}, titles...)
	table := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := []string{row.ID}
		for i, v := range row.Cells {
			if titles[i] == "STATUS" {
				v = statusBadge(v)
			} else {
				v = truncate(v, widths[i]+10)
			}
			line = append(line, v)
		}
		table = append(table, line)
	}
	printTable(headers, table)
	fmt.Printf("\n  %sTotal: %d %s%s\n\n", colorDim, len(rows), k.kind.Plural(), colorReset)
	return nil
}

func (k kindCommands[T, S]) runGet(cmd *cobra.Command, args []string) error {
	client, err := k.connect(cmd)
	if err != nil {
		return err
	}
	rec, err := k.collect(client).Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("getting %s %q: %w", k.kind, args[0], err)
	}
	return printJSON(rec)
}

func (k kindCommands[T, S]) readBody(cmd *cobra.Command) ([]byte, error) {
	inline, _ := cmd.Flags().GetString("data")
	file, _ := cmd.Flags().GetString("file")
	return readJSONArg(inline, file)
}

// overlay replaces the top-level fields of base named in patch. Fields
// the patch leaves out keep their current values.
func (k kindCommands[T, S]) overlay(base S, patch []byte) (S, error) {
	var out S
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return out, fmt.Errorf("parsing %s JSON: %w", k.kind, err)
	}
	if fields == nil {
		return out, fmt.Errorf("parsing %s JSON: expected an object", k.kind)
	}
	raw, err := json.Marshal(base)
	if err != nil {
		return out, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(raw, &merged); err != nil {
		return out, err
	}
	maps.Copy(merged, fields)
	if raw, err = json.Marshal(merged); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("parsing %s JSON: %w", k.kind, err)
	}
	return out, nil
}

func (k kindCommands[T, S]) runCreate(cmd *cobra.Command, args []string) error {
	body, err := k.readBody(cmd)
	if err != nil {
		return err
	}
	var zero S
	spec, err := k.overlay(zero, body)
	if err != nil {
		return err
	}
	client, err := k.connect(cmd)
	if err != nil {
		return err
	}
	rec, err := k.collect(client).Create(cmd.Context(), spec)
	if err != nil {
		return fmt.Errorf("creating %s: %w", k.kind, err)
	}
	fmt.Printf("\n  %s%s %q created.%s\n", styleBoldGreen, k.kind.Title(), rec.DisplayName(), colorReset)
	printField("ID", rec.RecordID())
	fmt.Println()
	return nil
}

func (k kindCommands[T, S]) runUpdate(cmd *cobra.Command, args []string) error {
	body, err := k.readBody(cmd)
	if err != nil {
		return err
	}
	client, err := k.connect(cmd)
	if err != nil {
		return err
	}
	col := k.collect(client)
	current, err := col.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("getting %s %q: %w", k.kind, args[0], err)
	}
	spec, err := k.overlay(k.spec(current), body)
	if err != nil {
		return err
	}
	rec, err := col.Update(cmd.Context(), args[0], spec)
	if err != nil {
		return fmt.Errorf("updating %s %q: %w", k.kind, args[0], err)
	}
	fmt.Printf("\n  %s%s %s updated.%s\n\n", styleBoldGreen, k.kind.Title(), rec.RecordID(), colorReset)
	return nil
}

func (k kindCommands[T, S]) runDelete(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("refusing to delete %s %s without --yes", k.kind, args[0])
	}
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}
	r := k.pick(d.console)
	mark := d.mark()
	r.RequestDelete(args[0])
	d.run(r.ConfirmDelete())
	if err := d.failure(mark); err != nil {
		return fmt.Errorf("deleting %s %q: %w", k.kind, args[0], err)
	}
	fmt.Printf("\n  %s%s.%s\n\n", styleBoldGreen, d.success(mark), colorReset)
	return nil
}

func (k kindCommands[T, S]) runAction(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}
	r := k.pick(d.console)
	mark := d.mark()
	run, err := r.Invoke(args[0], input)
	if err != nil {
		return err
	}
	d.run(run)
	if err := d.failure(mark); err != nil {
		return fmt.Errorf("%s %s %q: %w", k.verb, k.kind, args[0], err)
	}
	res, ok := lastMessage[console.ResultMsg](d)
	if !ok {
		return fmt.Errorf("%s %s %q: no result", k.verb, k.kind, args[0])
	}
	fmt.Println(res.Pretty())
	return nil
}

func (k kindCommands[T, S]) runValidate(cmd *cobra.Command, args []string) error {
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}
	r := k.pick(d.console)
	mark := d.mark()
	d.run(r.Validate(args[0]))
	res, ok := lastMessage[console.ValidatedMsg](d)
	if !ok {
		return fmt.Errorf("validating workflow %q: no answer", args[0])
	}
	if res.Err != nil {
		return fmt.Errorf("validating workflow %q: %w", args[0], res.Err)
	}

	printHeader("Workflow " + args[0])
	if res.Validation.IsValid {
		printField("Result", statusBadge("valid"))
	} else {
		printField("Result", statusBadge("invalid"))
	}
	for _, m := range res.Validation.Messages {
		fmt.Printf("  - %s\n", m)
	}
	fmt.Println()
	return d.failure(mark)
}

func (k kindCommands[T, S]) runLifecycle(cmd *cobra.Command, id string, start bool) error {
	d, err := newDriver(cmd)
	if err != nil {
		return err
	}
	r := k.pick(d.console)
	mark := d.mark()
	d.run(r.SetRunning(id, start))
	if err := d.failure(mark); err != nil {
		op := "stopping"
		if start {
			op = "starting"
		}
		return fmt.Errorf("%s %s %q: %w", op, k.kind, id, err)
	}
	fmt.Printf("\n  %s%s.%s\n\n", styleBoldGreen, d.success(mark), colorReset)
	return nil
}
