package chunk

import (
	"fmt"
	"strings"
)

// IndexDocument renders a human-readable index for a split artifact: part
// count, total size, checksum, and the ordered part names, with the
// instruction that reassembly requires reading every part in order.
func IndexDocument(name string, res Result, partNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (chunked content index)\n\n", name)
	fmt.Fprintf(&b, "This content was too large to store in one artifact and was split into %d parts.\n\n", res.PartCount)
	fmt.Fprintf(&b, "- Parts: %d\n", res.PartCount)
	fmt.Fprintf(&b, "- Total size: %d characters\n", res.TotalSize)
	fmt.Fprintf(&b, "- Checksum (MD5): %s\n\n", res.Checksum)
	b.WriteString("## Parts, in order\n\n")
	for i, part := range partNames {
		fmt.Fprintf(&b, "%d. %s\n", i+1, part)
	}
	b.WriteString("\nTo reconstruct the original content, read ALL parts in the order listed above and concatenate them. Partial reads produce incomplete content.\n")
	return b.String()
}
