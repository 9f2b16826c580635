package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/bx-cli/internal/core/domain"
	"github.com/kamal-hamza/bx-cli/pkg/ui"
)

var (
	assertionQR  string
	assertionRaw bool
)

var assertionCmd = &cobra.Command{
	Use:     "assertion <assignment-id>",
	Aliases: []string{"ob"},
	Short:   "Show the public Open Badge assertion of an assignment (alias: ob)",
	Long: `Fetch the public Open Badge assertion for an assignment and print it.

Use --qr to also write a PNG QR code pointing at the public assertion URL,
for example to print on a certificate. Use --raw for uncoloured output
suitable for piping.

Use 'bx assertion verify <assignment-id> <recipient>' to check that the
assertion is genuine and was issued to that recipient.`,
	Args: cobra.ExactArgs(1),
	RunE: runAssertion,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <assignment-id> <recipient>",
	Short: "Check that an assertion was issued to a recipient",
	Long: `Fetch the public Open Badge assertion of an assignment and ask the
server whether it is genuine and was issued to the given recipient
(usually an e-mail address).

Example:
  bx assertion verify 42 ana@school.test`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

func init() {
	assertionCmd.Flags().StringVar(&assertionQR, "qr", "", "Write a QR code of the assertion URL to this PNG file")
	assertionCmd.Flags().BoolVar(&assertionRaw, "raw", false, "Print JSON without colours")
	assertionCmd.AddCommand(verifyCmd)
}

func parseAssignmentID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid assignment id %q", arg)
	}
	return id, nil
}

func runAssertion(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	id, err := parseAssignmentID(args[0])
	if err != nil {
		return err
	}

	doc, err := assertionService.Fetch(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch assertion: %w", err)
	}

	if assertionRaw {
		fmt.Println(string(doc))
	} else {
		fmt.Println(ui.FormatMuted(assertionService.URL(id)))
		fmt.Println(highlightJSON(string(doc)))
	}

	if assertionQR != "" {
		png, err := assertionService.QRCode(id)
		if err != nil {
			return err
		}
		if err := os.WriteFile(assertionQR, png, 0644); err != nil {
			return fmt.Errorf("failed to write QR code: %w", err)
		}
		fmt.Println(ui.FormatSuccess("QR code written to " + assertionQR))
	}

	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := getContext(cmd)

	id, err := parseAssignmentID(args[0])
	if err != nil {
		return err
	}

	res, err := assertionService.Verify(ctx, id, args[1])
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), renderVerification(res))
	if !res.Valid {
		return shown(fmt.Errorf("assertion %d is not valid for %s", id, args[1]))
	}
	return nil
}

// renderVerification formats the server's verdict
func renderVerification(res *domain.VerificationResult) string {
	var b strings.Builder
	if res.Valid {
		b.WriteString(ui.FormatSuccess("Badge is valid"))
		b.WriteString("\n")
		b.WriteString(ui.RenderKeyValue("Badge", ui.FormatBold(res.BadgeName)))
		b.WriteString("\n")
		b.WriteString(ui.RenderKeyValue("Issuer", res.Issuer.Name))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(ui.FormatError("Badge is not valid"))
	b.WriteString("\n")
	b.WriteString(ui.RenderSimpleList(res.Errors))
	return b.String()
}

// highlightJSON applies syntax highlighting to a JSON document
func highlightJSON(content string) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("monokai")
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.TTY16m

	var buf strings.Builder
	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		return content
	}

	if err := formatter.Format(&buf, style, iterator); err != nil {
		return content
	}

	return buf.String()
}
