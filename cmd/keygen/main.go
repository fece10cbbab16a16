package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/authkeeper/internal/keygen"
)

func main() {
	var o keygen.Options

	flag.StringVar(&o.KID, "kid", "1", "key identifier used in file names and the JWT kid header")
	flag.IntVar(&o.Bits, "bits", keygen.DefaultBits, "RSA modulus size")
	flag.StringVar(&o.OutDir, "o", ".", "output directory")
	flag.StringVar(&o.Passphrase, "passphrase", os.Getenv("AUTHKEEPER_KEY_PASSPHRASE"), "encrypt the private key with this passphrase")
	flag.Parse()

	res, err := keygen.Generate(o)
	if err != nil {
		log.Fatalf("keygen: %v", err)
	}

	fmt.Println(res.PrivateKeyPath)
	fmt.Println(res.PublicKeyPath)
}
