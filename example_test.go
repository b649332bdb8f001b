package mapicodec_test

import (
	"encoding/hex"
	"fmt"
	"log"

	"github.com/arloliu/mapicodec"
	"github.com/arloliu/mapicodec/entryid"
)

// ExampleDecodeEntryID decodes an address book entry id.
func ExampleDecodeEntryID() {
	raw, _ := hex.DecodeString("00000000" + // flags
		"DCA740C8C042101AB4B908002B2FE182" + // address book provider
		"01000000" + "00000000" + // version, type
		hex.EncodeToString([]byte("/o=Contoso/cn=zoe\x00")))

	eid, err := mapicodec.DecodeEntryID(raw)
	if err != nil {
		log.Fatal(err)
	}

	ab := eid.(*entryid.AddressBook)
	fmt.Println(eid.Kind())
	fmt.Println(ab.X500DN)

	// Output:
	// AddressBook
	// /o=Contoso/cn=zoe
}

// ExampleDecodeConversationIndex reads the thread GUID from a conversation index.
func ExampleDecodeConversationIndex() {
	raw, _ := hex.DecodeString("01" + "D5A0B1C2E3" + "4A1E2B3C5D6E4F708192A3B4C5D6E7F8")

	idx, err := mapicodec.DecodeConversationIndex(raw)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(idx.Header.GUID)
	fmt.Println(len(idx.Levels))

	// Output:
	// 4a1e2b3c-5d6e-4f70-8192-a3b4c5d6e7f8
	// 0
}
