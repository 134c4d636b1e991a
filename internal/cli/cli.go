// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/Nady-Emad/zipman/internal/archive"
	"github.com/Nady-Emad/zipman/internal/batch"
	"github.com/Nady-Emad/zipman/internal/compression"
	"github.com/Nady-Emad/zipman/internal/config"
	"github.com/Nady-Emad/zipman/internal/progress"
	"github.com/Nady-Emad/zipman/internal/security"
	"github.com/Nady-Emad/zipman/internal/validate"
)

// ArchiveService provides single-archive operations for the CLI.
type ArchiveService interface {
	Create(archivePath string, sources []string, method compression.Method, password, baseDir string, exclude []string, cb progress.Callback) archive.Result
	Extract(archivePath, destDir, password string, members []string, cb progress.Callback) archive.Result
	List(archivePath, password string) ([]archive.Entry, error)
	GetInfo(archivePath string) (archive.Info, error)
}

// ValidateService provides integrity checks for the CLI.
type ValidateService interface {
	ValidateStructure(path string) (bool, string)
	VerifyChecksums(path string) validate.CRCReport
	GetStats(path string) (validate.Stats, error)
}

// BatchService provides multi-archive operations for the CLI.
type BatchService interface {
	Extract(operations []batch.ExtractOp, password string, cb progress.Callback) batch.Result
	Verify(archivePaths []string, cb progress.Callback) batch.Result
}

// SecurityService provides password operations for the CLI.
type SecurityService interface {
	ValidatePassword(password string) security.Assessment
	GeneratePassword(length int, includeSpecial bool) (string, error)
	GetEncryptionInfo(path string) security.EncryptionInfo
}

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	ConfigPath() string
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// NoProgress disables the progress bar (used in tests).
	NoProgress bool

	// Injectable dependencies (nil means use defaults)
	ArchiveSvc  ArchiveService
	ValidateSvc ValidateService
	BatchSvc    BatchService
	SecuritySvc SecurityService
	ConfigSvc   ConfigService

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, no
// progress bar, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	exitCode := 0
	return &CLI{
		Out:        out,
		Err:        errOut,
		Version:    "test",
		Args:       args,
		Exit:       func(code int) { exitCode = code; _ = exitCode },
		NoProgress: true,
		green:      noColor,
		yellow:     noColor,
		cyan:       noColor,
		gray:       noColor,
		red:        noColor,
	}
}

// defaultArchiveService wraps the archive package.
type defaultArchiveService struct{}

func (d *defaultArchiveService) Create(archivePath string, sources []string, method compression.Method, password, baseDir string, exclude []string, cb progress.Callback) archive.Result {
	m := archive.New(cb)
	m.Exclude = exclude
	return m.Create(archivePath, sources, method, password, baseDir)
}

func (d *defaultArchiveService) Extract(archivePath, destDir, password string, members []string, cb progress.Callback) archive.Result {
	return archive.New(cb).Extract(archivePath, destDir, password, members)
}

func (d *defaultArchiveService) List(archivePath, password string) ([]archive.Entry, error) {
	return archive.New(nil).List(archivePath, password)
}

func (d *defaultArchiveService) GetInfo(archivePath string) (archive.Info, error) {
	return archive.New(nil).GetInfo(archivePath)
}

// defaultValidateService wraps the validate package functions.
type defaultValidateService struct{}

func (d *defaultValidateService) ValidateStructure(path string) (bool, string) {
	return validate.ValidateStructure(path)
}
func (d *defaultValidateService) VerifyChecksums(path string) validate.CRCReport {
	return validate.VerifyChecksums(path)
}
func (d *defaultValidateService) GetStats(path string) (validate.Stats, error) {
	return validate.GetStats(path)
}

// defaultBatchService wraps the batch package.
type defaultBatchService struct{}

func (d *defaultBatchService) Extract(operations []batch.ExtractOp, password string, cb progress.Callback) batch.Result {
	return batch.New(cb).Extract(operations, password)
}
func (d *defaultBatchService) Verify(archivePaths []string, cb progress.Callback) batch.Result {
	return batch.New(cb).Verify(archivePaths)
}

// defaultSecurityService wraps the security package functions.
type defaultSecurityService struct{}

func (d *defaultSecurityService) ValidatePassword(password string) security.Assessment {
	return security.ValidatePassword(password)
}
func (d *defaultSecurityService) GeneratePassword(length int, includeSpecial bool) (string, error) {
	return security.GeneratePassword(length, includeSpecial)
}
func (d *defaultSecurityService) GetEncryptionInfo(path string) security.EncryptionInfo {
	return security.GetEncryptionInfo(path)
}

// defaultConfigService wraps the config package functions.
type defaultConfigService struct{}

func (d *defaultConfigService) Load() (*config.Config, error) { return config.Load() }
func (d *defaultConfigService) Save(cfg *config.Config) error { return cfg.Save() }
func (d *defaultConfigService) ConfigPath() string            { return config.ConfigPath() }

// Helper methods to get the service or default
func (c *CLI) archiveSvc() ArchiveService {
	if c.ArchiveSvc != nil {
		return c.ArchiveSvc
	}
	return &defaultArchiveService{}
}

func (c *CLI) validateSvc() ValidateService {
	if c.ValidateSvc != nil {
		return c.ValidateSvc
	}
	return &defaultValidateService{}
}

func (c *CLI) batchSvc() BatchService {
	if c.BatchSvc != nil {
		return c.BatchSvc
	}
	return &defaultBatchService{}
}

func (c *CLI) securitySvc() SecurityService {
	if c.SecuritySvc != nil {
		return c.SecuritySvc
	}
	return &defaultSecurityService{}
}

func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

// progressCB returns the progress bar callback, or nil when disabled.
func (c *CLI) progressCB() progress.Callback {
	if c.NoProgress {
		return nil
	}
	return progress.ConsoleCallback(c.Out)
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	if len(c.Args) < 2 {
		c.PrintUsage()
		c.Exit(1)
		return
	}

	switch c.Args[1] {
	case "create":
		c.RunCreate()
	case "extract":
		c.RunExtract()
	case "list":
		c.RunList()
	case "verify":
		c.RunVerify()
	case "info":
		c.ShowInfo()
	case "batch-extract":
		c.RunBatchExtract()
	case "batch-verify":
		c.RunBatchVerify()
	case "generate-password":
		c.GeneratePassword()
	case "init":
		c.InitConfig()
	case "version", "-v", "--version":
		fmt.Fprintf(c.Out, "zipman v%s\n", c.Version)
	case "help", "-h", "--help":
		c.PrintUsage()
	default:
		fmt.Fprintf(c.Err, "Unknown command: %s\n", c.Args[1])
		c.PrintUsage()
		c.Exit(1)
	}
}

// PrintUsage prints the help message.
func (c *CLI) PrintUsage() {
	fmt.Fprintln(c.Out, `zipman - ZIP Archive Manager

Usage:
  zipman create <output.zip> <files...> [--compression=METHOD] [--password=PW] [--base-dir=DIR]
                                           Create an archive from files and directories
  zipman extract <archive> --output=DIR [--password=PW] [--members=a,b,c]
                                           Extract an archive (optionally specific members)
  zipman list <archive> [--detailed] [--password=PW]
                                           List archive contents
  zipman verify <archive> [--crc]          Verify archive integrity (--crc checks every file)
  zipman info <archive>                    Show archive statistics and encryption details
  zipman batch-extract <archives...> --output=DIR [--password=PW]
                                           Extract multiple archives
  zipman batch-verify <archives...>        Verify multiple archives
  zipman generate-password [--length=N] [--no-special]
                                           Generate a secure random password
  zipman init                              Create default config file
  zipman version, -v                       Show version
  zipman help, -h                          Show this help

Compression methods: store, deflate (default), bzip2, lzma
Config: ~/.zipman/config.yaml`)
}

// splitArgs separates positional arguments from --flags.
func splitArgs(args []string) (positional []string, flags map[string]string) {
	flags = make(map[string]string)
	for _, arg := range args {
		if !strings.HasPrefix(arg, "--") {
			positional = append(positional, arg)
			continue
		}
		key, value, found := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !found {
			value = "true"
		}
		flags[key] = value
	}
	return positional, flags
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() {
	svc := c.configSvc()
	if err := svc.Save(config.DefaultConfig()); err != nil {
		fmt.Fprintf(c.Err, "Error saving config: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", svc.ConfigPath())
}

// RunCreate creates an archive from the given source paths.
func (c *CLI) RunCreate() {
	positional, flags := splitArgs(c.Args[2:])
	if len(positional) < 2 {
		fmt.Fprintln(c.Out, "Usage: zipman create <output.zip> <files...> [--compression=METHOD] [--password=PW] [--base-dir=DIR]")
		c.Exit(1)
		return
	}
	output, sources := positional[0], positional[1:]

	// Reject bad input before any I/O.
	for _, source := range sources {
		if ok, msg := validate.ValidatePath(source, true); !ok {
			fmt.Fprintf(c.Err, "Error: %s: %s\n", source, msg)
			c.Exit(1)
			return
		}
	}

	password := flags["password"]
	if password != "" {
		assessment := c.securitySvc().ValidatePassword(password)
		if !assessment.Valid {
			fmt.Fprintf(c.Err, "Error: %s\n", assessment.Message)
			c.Exit(1)
			return
		}
		if assessment.Message != "Password is acceptable" {
			fmt.Fprintf(c.Out, "%s %s\n", c.yellow("!"), assessment.Message)
		}
	}

	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}

	methodName := flags["compression"]
	if methodName == "" {
		methodName = cfg.Compression
	}
	method := compression.FromName(methodName)

	fmt.Fprintf(c.Out, "%s Creating %s (%s)\n", c.cyan("=>"), output, method)

	result := c.archiveSvc().Create(output, sources, method, password, flags["base-dir"], cfg.Exclude, c.progressCB())
	if !result.Success {
		fmt.Fprintf(c.Err, "%s %s\n", c.red("x"), result.Err)
		c.Exit(1)
		return
	}

	if info, err := c.archiveSvc().GetInfo(output); err == nil {
		fmt.Fprintf(c.Out, "%s Created %s: %d files, %s (%.1f%% compression)\n",
			c.green("*"), output, info.FileCount, formatSize(info.ArchiveSize), info.CompressionRatio)
	} else {
		fmt.Fprintf(c.Out, "%s Created %s\n", c.green("*"), output)
	}
}

// RunExtract extracts an archive.
func (c *CLI) RunExtract() {
	positional, flags := splitArgs(c.Args[2:])
	if len(positional) < 1 || flags["output"] == "" {
		fmt.Fprintln(c.Out, "Usage: zipman extract <archive> --output=DIR [--password=PW] [--members=a,b,c]")
		c.Exit(1)
		return
	}
	archivePath := positional[0]

	if ok, msg := validate.ValidatePath(archivePath, true); !ok {
		fmt.Fprintf(c.Err, "Error: %s: %s\n", archivePath, msg)
		c.Exit(1)
		return
	}

	var members []string
	if flags["members"] != "" {
		members = strings.Split(flags["members"], ",")
	}

	fmt.Fprintf(c.Out, "%s Extracting %s to %s\n", c.cyan("=>"), archivePath, flags["output"])

	result := c.archiveSvc().Extract(archivePath, flags["output"], flags["password"], members, c.progressCB())
	if !result.Success {
		fmt.Fprintf(c.Err, "%s %s\n", c.red("x"), result.Err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "%s Extracted to %s\n", c.green("*"), flags["output"])
}

// RunList lists the contents of an archive.
func (c *CLI) RunList() {
	positional, flags := splitArgs(c.Args[2:])
	if len(positional) < 1 {
		fmt.Fprintln(c.Out, "Usage: zipman list <archive> [--detailed] [--password=PW]")
		c.Exit(1)
		return
	}
	archivePath := positional[0]

	entries, err := c.archiveSvc().List(archivePath, flags["password"])
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	if len(entries) == 0 {
		fmt.Fprintf(c.Out, "%s is empty\n", archivePath)
		return
	}

	fmt.Fprintf(c.Out, "Contents of %s:\n\n", c.cyan(archivePath))
	if flags["detailed"] == "true" {
		fmt.Fprintf(c.Out, "  %10s %10s %7s %9s %8s  %s\n", "SIZE", "PACKED", "RATIO", "METHOD", "CRC32", "NAME")
		for _, e := range entries {
			name := e.Name
			if e.Encrypted {
				name += " " + c.yellow("[encrypted]")
			}
			fmt.Fprintf(c.Out, "  %10s %10s %6.1f%% %9s %08x  %s\n",
				formatSize(archive.SafeSize(e.UncompressedSize)),
				formatSize(archive.SafeSize(e.CompressedSize)),
				archive.Ratio(e.CompressedSize, e.UncompressedSize),
				compression.TypeName(e.Method),
				e.CRC32,
				name)
		}
	} else {
		for _, e := range entries {
			if e.IsDir {
				fmt.Fprintf(c.Out, "  %s\n", c.gray(e.Name))
			} else {
				fmt.Fprintf(c.Out, "  %s\n", e.Name)
			}
		}
	}
	fmt.Fprintf(c.Out, "\n%d entries\n", len(entries))
}

// RunVerify verifies archive integrity.
func (c *CLI) RunVerify() {
	positional, flags := splitArgs(c.Args[2:])
	if len(positional) < 1 {
		fmt.Fprintln(c.Out, "Usage: zipman verify <archive> [--crc]")
		c.Exit(1)
		return
	}
	archivePath := positional[0]
	svc := c.validateSvc()

	valid, message := svc.ValidateStructure(archivePath)
	if !valid {
		fmt.Fprintf(c.Out, "%s %s: %s\n", c.red("x"), archivePath, message)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "%s %s: %s\n", c.green("*"), archivePath, message)

	if flags["crc"] != "true" {
		return
	}

	report := svc.VerifyChecksums(archivePath)
	fmt.Fprintf(c.Out, "  Checksums: %d/%d verified\n", report.VerifiedFiles, report.TotalFiles)
	if report.Valid {
		return
	}
	for _, e := range report.Errors {
		fmt.Fprintf(c.Out, "  %s %s\n", c.red("x"), e)
	}
	c.Exit(1)
}

// ShowInfo prints archive statistics and encryption details.
func (c *CLI) ShowInfo() {
	positional, _ := splitArgs(c.Args[2:])
	if len(positional) < 1 {
		fmt.Fprintln(c.Out, "Usage: zipman info <archive>")
		c.Exit(1)
		return
	}
	archivePath := positional[0]

	stats, err := c.validateSvc().GetStats(archivePath)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	encInfo := c.securitySvc().GetEncryptionInfo(archivePath)

	fmt.Fprintf(c.Out, "%s:\n", c.cyan(archivePath))
	fmt.Fprintf(c.Out, "  Files:        %d\n", stats.FileCount)
	fmt.Fprintf(c.Out, "  Directories:  %d\n", stats.DirCount)
	fmt.Fprintf(c.Out, "  Uncompressed: %s\n", formatSize(archive.SafeSize(stats.TotalUncompressed)))
	fmt.Fprintf(c.Out, "  Compressed:   %s\n", formatSize(archive.SafeSize(stats.TotalCompressed)))
	fmt.Fprintf(c.Out, "  Ratio:        %.1f%%\n", stats.CompressionRatio)
	fmt.Fprintf(c.Out, "  On disk:      %s\n", formatSize(stats.ArchiveSize))
	fmt.Fprintf(c.Out, "  Encryption:   %s\n", encInfo.Scheme)
	if encInfo.Encrypted {
		fmt.Fprintf(c.Out, "  Encrypted:    %d/%d entries\n", encInfo.EncryptedFiles, encInfo.TotalFiles)
	}
	if stats.Largest != nil {
		fmt.Fprintf(c.Out, "  Largest:      %s (%s)\n", stats.Largest.Name, formatSize(archive.SafeSize(stats.Largest.UncompressedSize)))
	}
	if len(stats.Extensions) > 0 {
		fmt.Fprintf(c.Out, "  Types:        ")
		first := true
		for _, ext := range sortedKeys(stats.Extensions) {
			if !first {
				fmt.Fprint(c.Out, ", ")
			}
			fmt.Fprintf(c.Out, "%s (%d)", ext, stats.Extensions[ext])
			first = false
		}
		fmt.Fprintln(c.Out)
	}
}

// RunBatchExtract extracts multiple archives.
func (c *CLI) RunBatchExtract() {
	positional, flags := splitArgs(c.Args[2:])
	if len(positional) < 1 || flags["output"] == "" {
		fmt.Fprintln(c.Out, "Usage: zipman batch-extract <archives...> --output=DIR [--password=PW]")
		c.Exit(1)
		return
	}

	operations := make([]batch.ExtractOp, 0, len(positional))
	for _, path := range positional {
		operations = append(operations, batch.ExtractOp{ArchivePath: path, DestDir: flags["output"]})
	}

	result := c.batchSvc().Extract(operations, flags["password"], c.progressCB())
	c.printBatchResult("extracted", result)
}

// RunBatchVerify verifies multiple archives.
func (c *CLI) RunBatchVerify() {
	positional, _ := splitArgs(c.Args[2:])
	if len(positional) < 1 {
		fmt.Fprintln(c.Out, "Usage: zipman batch-verify <archives...>")
		c.Exit(1)
		return
	}

	result := c.batchSvc().Verify(positional, c.progressCB())
	c.printBatchResult("valid", result)
}

// printBatchResult renders a batch summary and maps failures to exit code 1.
func (c *CLI) printBatchResult(verb string, result batch.Result) {
	fmt.Fprintln(c.Out)
	for _, e := range result.Errors {
		fmt.Fprintf(c.Out, "  %s %s: %s\n", c.red("x"), e.Item, e.Message)
	}
	fmt.Fprintf(c.Out, "Done: %s %s, %s failed (of %d)\n",
		c.green(fmt.Sprintf("%d", result.Successful)), verb,
		c.red(fmt.Sprintf("%d", result.Failed)),
		result.Total)
	if result.Failed > 0 {
		c.Exit(1)
	}
}

// GeneratePassword prints a freshly generated password.
func (c *CLI) GeneratePassword() {
	_, flags := splitArgs(c.Args[2:])

	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}

	length := cfg.PasswordLength
	if flags["length"] != "" {
		if _, err := fmt.Sscanf(flags["length"], "%d", &length); err != nil {
			fmt.Fprintf(c.Err, "Error: invalid length: %s\n", flags["length"])
			c.Exit(1)
			return
		}
	}

	password, err := c.securitySvc().GeneratePassword(length, flags["no-special"] != "true")
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintln(c.Out, password)
}

// formatSize formats bytes as human-readable
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// sortedKeys returns the map's keys in ascending order.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
