// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arbolab/wdtree/internal/config"
	"github.com/arbolab/wdtree/internal/explore"
	"github.com/arbolab/wdtree/internal/flare"
	"github.com/arbolab/wdtree/internal/output"
	"github.com/arbolab/wdtree/internal/services/clipboard"
	"github.com/arbolab/wdtree/internal/table"
	"github.com/arbolab/wdtree/internal/types"
	"github.com/arbolab/wdtree/internal/utils"
	"github.com/arbolab/wdtree/internal/wikidata"
)

const (
	forbidFlagName       = "forbid"
	formatFlagName       = "format"
	labelsFlagName       = "labels"
	detailsFlagName      = "details"
	groupSinglesFlagName = "group-singles"
	endpointFlagName     = "endpoint"
	languageFlagName     = "lang"
	claimsFlagName       = "claims"
	hierarchyFlagName    = "hierarchy"
	prefetchFlagName     = "prefetch"
	configFlagName       = "config"
	versionFlagName      = "version"
	forceFlagName        = "force"
	globalFlagName       = "global"

	versionTemplate      = "wdtree version: %s\n"
	rootUse              = "wdtree"
	rootShortDescription = "wdtree command line interface"
	rootLongDescription  = `wdtree explores the Wikidata "instance of"/"subclass of" hierarchy.
It materializes every descendant of a root entity into a tree and renders it
either as a nested flare structure for d3js-style visualization or as a flat
table with one row per entity, its claim values, and every root path.`
	versionFlagDescription = "display application version"

	treeUse              = "tree <rootQID>"
	tableUse             = "table <rootQID>"
	treeAlias            = "t"
	tableAlias           = "tb"
	treeShortDescription = "render the descendant tree (" + treeAlias + ")"
	// treeLongDescription provides detailed help for the tree command.
	treeLongDescription = `Materialize the hierarchy below a root entity and render it.
Use --forbid to stop expansion at specific entities, --labels to resolve
human-readable names, and --format to select raw, json, or xml output.`
	// treeUsageExample demonstrates tree command usage.
	treeUsageExample = `  # Explore computer science, skipping programming languages
  wdtree tree Q21198 --forbid Q9143

  # Labeled flare JSON for d3js
  wdtree tree Q21198 --labels --format json`
	tableShortDescription = "render the descendant table (" + tableAlias + ")"
	// tableLongDescription provides detailed help for the table command.
	tableLongDescription = `Materialize the hierarchy below a root entity and flatten it into a table
with one row per distinct entity, the configured claim columns, and every
distinct path from the root to the entity. Use --format to select raw, json,
or csv output.`
	// tableUsageExample demonstrates table command usage.
	tableUsageExample = `  # CSV with inception and subclass-of columns
  wdtree table Q21198 --claims P571,P279 --format csv

  # Labeled JSON rows
  wdtree table Q21198 --labels --format json

  # Claim details: time precision and qualifier columns
  wdtree table Q21198 --claims P571 --details --labels`

	configUse                  = "config"
	configShortDescription     = "manage configuration"
	configInitUse              = "init"
	configInitShortDescription = "write a default configuration file"

	forbidFlagDescription       = "entity id at which expansion stops (repeatable)"
	formatFlagDescription       = "output format"
	labelsFlagDescription       = "resolve human-readable labels"
	detailsFlagDescription      = "fetch claim details (time precision and qualifier columns)"
	groupSinglesFlagDescription = "group childless entries under a singleEntries node"
	endpointFlagDescription     = "SPARQL endpoint URL"
	languageFlagDescription     = "label language fallback order"
	claimsFlagDescription       = "claim properties fetched per entity"
	hierarchyFlagDescription    = "set-membership properties defining the hierarchy"
	prefetchFlagDescription     = "fetch sibling children concurrently"
	configFlagDescription       = "configuration file path"
	forceFlagDescription        = "overwrite an existing configuration file"
	globalFlagDescription       = "write the global configuration file"

	invalidFormatMessage      = "Invalid format value '%s'"
	invalidEntityIDMessage    = "invalid entity id '%s'"
	workingDirectoryErrorFmt  = "unable to determine working directory: %w"
	clipboardCopyWarningFmt   = "Warning: failed to copy output to clipboard: %v\n"
	configInitializedTemplate = "configuration written to %s\n"
)

// isSupportedTreeFormat reports whether the tree command recognizes the format.
func isSupportedTreeFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatXML:
		return true
	default:
		return false
	}
}

// isSupportedTableFormat reports whether the table command recognizes the format.
func isSupportedTableFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatCSV:
		return true
	default:
		return false
	}
}

// Execute runs the wdtree application.
func Execute() error {
	rootCommand := createRootCommand()
	return rootCommand.Execute()
}

// createRootCommand builds the root Cobra command.
func createRootCommand() *cobra.Command {
	var showVersion bool

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRun: func(command *cobra.Command, arguments []string) {
			if showVersion {
				fmt.Printf(versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
		},
	}
	rootCommand.PersistentFlags().BoolVar(&showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.AddCommand(
		createTreeCommand(),
		createTableCommand(),
		createConfigCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// queryOptions stores configuration for query-service flags shared by the
// tree and table commands.
type queryOptions struct {
	endpoint           string
	languages          []string
	claims             []string
	hierarchy          []string
	prefetchEnabled    bool
	configFilePath     string
	forbiddenEntityIDs []string
}

// addQueryFlags registers query-service flags on the command.
func addQueryFlags(command *cobra.Command, options *queryOptions) {
	command.Flags().StringArrayVar(&options.forbiddenEntityIDs, forbidFlagName, nil, forbidFlagDescription)
	command.Flags().StringVar(&options.endpoint, endpointFlagName, utils.EmptyString, endpointFlagDescription)
	command.Flags().StringSliceVar(&options.languages, languageFlagName, nil, languageFlagDescription)
	command.Flags().StringSliceVar(&options.claims, claimsFlagName, nil, claimsFlagDescription)
	command.Flags().StringSliceVar(&options.hierarchy, hierarchyFlagName, nil, hierarchyFlagDescription)
	command.Flags().BoolVar(&options.prefetchEnabled, prefetchFlagName, false, prefetchFlagDescription)
	command.Flags().StringVar(&options.configFilePath, configFlagName, utils.EmptyString, configFlagDescription)
}

// createTreeCommand returns the tree subcommand.
func createTreeCommand() *cobra.Command {
	var queryConfiguration queryOptions
	var outputFormat string = types.FormatJSON
	var labelsEnabled bool
	var groupSinglesEnabled bool
	var clipboardEnabled bool

	treeCommand := &cobra.Command{
		Use:     treeUse,
		Aliases: []string{treeAlias},
		Short:   treeShortDescription,
		Long:    treeLongDescription,
		Example: treeUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			request, requestError := resolveRunRequest(command, arguments[0], &queryConfiguration, outputFormat, labelsEnabled, clipboardEnabled, types.CommandTree)
			if requestError != nil {
				return requestError
			}
			if !isSupportedTreeFormat(request.format) {
				return fmt.Errorf(invalidFormatMessage, request.format)
			}
			if !command.Flags().Changed(groupSinglesFlagName) && request.configuration.Tree.GroupSingles != nil {
				groupSinglesEnabled = *request.configuration.Tree.GroupSingles
			}
			return runTree(command.Context(), request, groupSinglesEnabled)
		},
	}

	addQueryFlags(treeCommand, &queryConfiguration)
	treeCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatJSON, formatFlagDescription)
	treeCommand.Flags().BoolVar(&labelsEnabled, labelsFlagName, false, labelsFlagDescription)
	treeCommand.Flags().BoolVar(&groupSinglesEnabled, groupSinglesFlagName, false, groupSinglesFlagDescription)
	registerCopyFlag(treeCommand.Flags(), &clipboardEnabled)
	return treeCommand
}

// createTableCommand returns the table subcommand.
func createTableCommand() *cobra.Command {
	var queryConfiguration queryOptions
	var outputFormat string = types.FormatCSV
	var labelsEnabled bool
	var detailsEnabled bool
	var clipboardEnabled bool

	tableCommand := &cobra.Command{
		Use:     tableUse,
		Aliases: []string{tableAlias},
		Short:   tableShortDescription,
		Long:    tableLongDescription,
		Example: tableUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			request, requestError := resolveRunRequest(command, arguments[0], &queryConfiguration, outputFormat, labelsEnabled, clipboardEnabled, types.CommandTable)
			if requestError != nil {
				return requestError
			}
			if !isSupportedTableFormat(request.format) {
				return fmt.Errorf(invalidFormatMessage, request.format)
			}
			if !command.Flags().Changed(detailsFlagName) && request.configuration.Table.Details != nil {
				detailsEnabled = *request.configuration.Table.Details
			}
			return runTable(command.Context(), request, detailsEnabled)
		},
	}

	addQueryFlags(tableCommand, &queryConfiguration)
	tableCommand.Flags().StringVar(&outputFormat, formatFlagName, types.FormatCSV, formatFlagDescription)
	tableCommand.Flags().BoolVar(&labelsEnabled, labelsFlagName, false, labelsFlagDescription)
	tableCommand.Flags().BoolVar(&detailsEnabled, detailsFlagName, false, detailsFlagDescription)
	registerCopyFlag(tableCommand.Flags(), &clipboardEnabled)
	return tableCommand
}

// createConfigCommand returns the config subcommand with its init action.
func createConfigCommand() *cobra.Command {
	configCommand := &cobra.Command{
		Use:   configUse,
		Short: configShortDescription,
	}

	var writeGlobal bool
	var forceOverwrite bool
	initCommand := &cobra.Command{
		Use:   configInitUse,
		Short: configInitShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if writeGlobal {
				target = config.InitTargetGlobal
			}
			writtenPath, initializeError := config.InitializeConfiguration(config.InitOptions{
				Target: target,
				Force:  forceOverwrite,
			})
			if initializeError != nil {
				return initializeError
			}
			fmt.Printf(configInitializedTemplate, writtenPath)
			return nil
		},
	}
	initCommand.Flags().BoolVar(&writeGlobal, globalFlagName, false, globalFlagDescription)
	initCommand.Flags().BoolVar(&forceOverwrite, forceFlagName, false, forceFlagDescription)

	configCommand.AddCommand(initCommand)
	return configCommand
}

// runRequest carries everything one tree or table invocation needs.
type runRequest struct {
	rootID           string
	forbidden        []string
	format           string
	labelsEnabled    bool
	clipboardEnabled bool
	prefetchEnabled  bool
	claims           []string
	client           *wikidata.Client
	configuration    config.ApplicationConfiguration
}

// resolveRunRequest validates the root identifier, loads the layered
// configuration, overlays the changed flags, and constructs the query client.
func resolveRunRequest(
	command *cobra.Command,
	rootID string,
	options *queryOptions,
	outputFormat string,
	labelsEnabled bool,
	clipboardEnabled bool,
	commandName string,
) (*runRequest, error) {
	if !wikidata.EntityIDPattern.MatchString(rootID) {
		return nil, fmt.Errorf(invalidEntityIDMessage, rootID)
	}
	for _, forbiddenID := range options.forbiddenEntityIDs {
		if !wikidata.EntityIDPattern.MatchString(forbiddenID) {
			return nil, fmt.Errorf(invalidEntityIDMessage, forbiddenID)
		}
	}

	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return nil, fmt.Errorf(workingDirectoryErrorFmt, workingDirectoryError)
	}
	configuration, configurationError := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configFilePath,
	})
	if configurationError != nil {
		return nil, configurationError
	}

	request := &runRequest{
		rootID:           rootID,
		forbidden:        options.forbiddenEntityIDs,
		format:           strings.ToLower(outputFormat),
		labelsEnabled:    labelsEnabled,
		clipboardEnabled: clipboardEnabled,
		prefetchEnabled:  options.prefetchEnabled,
		claims:           options.claims,
		configuration:    configuration,
	}

	flags := command.Flags()
	commandFormat, commandLabels, commandClipboard := commandDefaults(configuration, commandName)
	if !flags.Changed(formatFlagName) && commandFormat != "" {
		request.format = strings.ToLower(commandFormat)
	}
	if !flags.Changed(labelsFlagName) && commandLabels != nil {
		request.labelsEnabled = *commandLabels
	}
	if !flags.Changed(copyFlagName) && commandClipboard != nil {
		request.clipboardEnabled = *commandClipboard
	}
	if !flags.Changed(prefetchFlagName) && configuration.Query.Prefetch != nil {
		request.prefetchEnabled = *configuration.Query.Prefetch
	}
	if !flags.Changed(claimsFlagName) && len(configuration.Query.Claims) > 0 {
		request.claims = configuration.Query.Claims
	}

	endpoint := options.endpoint
	if !flags.Changed(endpointFlagName) {
		endpoint = configuration.Query.Endpoint
	}
	languages := options.languages
	if !flags.Changed(languageFlagName) {
		languages = configuration.Query.Languages
	}
	hierarchy := options.hierarchy
	if !flags.Changed(hierarchyFlagName) {
		hierarchy = configuration.Query.Hierarchy
	}

	client, clientError := wikidata.NewClient(wikidata.Options{
		Endpoint:            endpoint,
		Languages:           languages,
		DefaultLanguage:     configuration.Query.DefaultLanguage,
		LookupClaims:        lookupClaims(request.claims),
		HierarchyProperties: hierarchy,
	})
	if clientError != nil {
		return nil, clientError
	}
	request.client = client
	return request, nil
}

// lookupClaims keeps the service's defaults when the caller declared no
// attribute schema, so rows are never silently empty.
func lookupClaims(claims []string) []string {
	if len(claims) == 0 {
		return nil
	}
	return claims
}

// commandDefaults extracts the per-command configuration defaults.
func commandDefaults(configuration config.ApplicationConfiguration, commandName string) (string, *bool, *bool) {
	if commandName == types.CommandTable {
		return configuration.Table.Format, configuration.Table.Labels, configuration.Table.Clipboard
	}
	return configuration.Tree.Format, configuration.Tree.Labels, configuration.Tree.Clipboard
}

// expand materializes the tree for the request.
func (request *runRequest) expand(ctx context.Context) (*types.TreeNode, error) {
	var explorerOptions []explore.Option
	if request.prefetchEnabled {
		explorerOptions = append(explorerOptions, explore.WithPrefetch(0))
	}
	explorer := explore.NewExplorer(request.client, explorerOptions...)
	return explorer.Expand(ctx, request.rootID, request.forbidden)
}

// runTree executes the tree command.
func runTree(ctx context.Context, request *runRequest, groupSinglesEnabled bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	root, expandError := request.expand(ctx)
	if expandError != nil {
		return expandError
	}
	flareRoot := flare.FromTree(root)
	if request.labelsEnabled {
		labels, labelError := request.client.ResolveLabels(ctx, explore.Identifiers(root))
		if labelError != nil {
			return labelError
		}
		flareRoot = flare.WithLabels(flareRoot, labels)
	}
	if groupSinglesEnabled {
		flareRoot = flare.GroupSingles(flareRoot)
	}

	var rendered string
	var renderError error
	switch request.format {
	case types.FormatJSON:
		rendered, renderError = output.RenderTreeJSON(flareRoot)
	case types.FormatXML:
		rendered, renderError = output.RenderTreeXML(flareRoot)
	default:
		rendered = output.RenderTreeRaw(flareRoot)
	}
	if renderError != nil {
		return renderError
	}
	return emit(rendered, request.clipboardEnabled)
}

// runTable executes the table command.
func runTable(ctx context.Context, request *runRequest, detailsEnabled bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	root, expandError := request.expand(ctx)
	if expandError != nil {
		return expandError
	}
	claims := request.claims
	if len(claims) == 0 {
		claims = wikidata.DefaultLookupClaims
	}
	builder := table.Builder{Claims: claims}
	rows := builder.Build(root)
	columns := claims
	if detailsEnabled {
		details, detailsError := fetchDetails(ctx, request.client, rows)
		if detailsError != nil {
			return detailsError
		}
		rows, columns = table.WithDetails(rows, details, claims)
	}
	titles := columns
	if request.labelsEnabled {
		labels, labelError := request.client.ResolveLabels(ctx, table.Identifiers(rows))
		if labelError != nil {
			return labelError
		}
		rows = table.Labeled(rows, labels)
		titles = table.ColumnTitles(columns, labels)
	}

	var rendered string
	var renderError error
	switch request.format {
	case types.FormatJSON:
		rendered, renderError = output.RenderTableJSON(rows)
	case types.FormatCSV:
		rendered, renderError = output.RenderTableCSV(rows, columns, titles)
	default:
		rendered = output.RenderTableRaw(rows, columns, titles)
	}
	if renderError != nil {
		return renderError
	}
	return emit(rendered, request.clipboardEnabled)
}

// fetchDetails retrieves flattened claim details for every row.
func fetchDetails(ctx context.Context, client *wikidata.Client, rows []types.TableRow) (map[string]map[string][]string, error) {
	details := make(map[string]map[string][]string, len(rows))
	for _, row := range rows {
		rowDetails, fetchError := client.FetchClaimDetails(ctx, row.ID)
		if fetchError != nil {
			return nil, fetchError
		}
		details[row.ID] = rowDetails
	}
	return details, nil
}

// emit prints rendered output and optionally copies it to the clipboard.
func emit(rendered string, copyToClipboard bool) error {
	output.Print(rendered)
	if copyToClipboard {
		if copyError := clipboard.NewService().Copy(rendered); copyError != nil {
			fmt.Fprintf(os.Stderr, clipboardCopyWarningFmt, copyError)
		}
	}
	return nil
}
