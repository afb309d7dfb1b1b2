// Command dc_finalize recovers a collision witness from two starts
// known to share a distinguished point.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"

	"github.com/dcollide/birthdayparty/pkg/finalizer"
	"github.com/dcollide/birthdayparty/pkg/hashparams"
)

func main() {
	prefixBytes := flag.Int("prefix-bytes", 8, "number of leading SHA-256 digest bytes kept")
	suffixBytes := flag.Int("suffix-bytes", 0, "number of trailing SHA-256 digest bytes kept")
	dpBits := flag.Int("dp-bits", 16, "number of leading zero bits required of a distinguished point")
	flag.Parse()

	if flag.NArg() != 2 {
		log.Fatal("usage: dc_finalize [flags] <start_a_hex> <start_b_hex>")
	}

	params, err := hashparams.Validate(*prefixBytes, *suffixBytes, *dpBits)
	if err != nil {
		log.Fatal("Invalid hash parameters: ", err)
	}

	startA, err := hex.DecodeString(flag.Arg(0))
	if err != nil || len(startA) != params.TotalBytes() {
		log.Fatalf("start_a must decode to %d bytes", params.TotalBytes())
	}
	startB, err := hex.DecodeString(flag.Arg(1))
	if err != nil || len(startB) != params.TotalBytes() {
		log.Fatalf("start_b must decode to %d bytes", params.TotalBytes())
	}

	witness, err := finalizer.Finalize(params, startA, startB)
	if err != nil {
		log.Fatal("Finalization failed: ", err)
	}

	fmt.Printf("collision witness:\n  p_a: %s\n  p_b: %s\n", hex.EncodeToString(witness.A), hex.EncodeToString(witness.B))
}
