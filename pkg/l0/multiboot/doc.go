// Package multiboot implements the sender side of the cable boot protocol,
// which provisions up to three passive peers with an executable image.
//
// A transfer runs these phases in order:
//
//	detect          broadcast 0x6200 until clients answer 0x720X
//	confirm         0x61YY with the client bits, expect 0x720X
//	header          0xC0 header bytes, one 16-bit word per exchange
//	confirm header  0x6200, expect 0x000X
//	reconfirm       0x62YY, expect 0x720X
//	palette         0x63PP, collect 0x73CC from every client
//	handshake       0x64HH, expect 0x73xx
//	transfer        the BIOS bulk transfer of the image remainder
//
// X is the single id bit of a client (0b0010, 0b0100 or 0b1000), YY the
// union of detected bits. Responses lag one exchange behind the word sent.
//
// Send is synchronous. Every wait polls the caller supplied cancel function
// and the port is returned to general-purpose mode on every exit path.
//
// Example:
//
//	sender := multiboot.New(port, clock, bios,
//	    multiboot.WithProgress(func(p multiboot.Progress) {
//	        fmt.Printf("%s %d%%\n", p.Phase, p.Percentage)
//	    }),
//	)
//	if result := sender.Send(rom, len(rom), raw.Never); result != multiboot.Success {
//	    return result.Err()
//	}
package multiboot
