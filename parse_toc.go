package rawcd

import "encoding/binary"

// leadoutTrackNumber is the SCSI-reserved track number that marks the
// lead-out descriptor in a READ TOC format-0 response.
const leadoutTrackNumber = 0xAA

// tocDescriptorSize is the size in bytes of one track descriptor following
// the 4-byte TOC header.
const tocDescriptorSize = 8

// parseTOC decodes a READ TOC/PMA/ATIP format-0 response (MMC-5 table 333)
// into a Toc. The response is big-endian throughout:
//
//	bytes [0:2]  TOC data length N (not counting these two length bytes)
//	byte  [2]    first track number
//	byte  [3]    last track number
//	bytes [4:]   8-byte track descriptors, one per track plus the lead-out
//
// Each descriptor is laid out as [reserved, control/adr, track number,
// reserved, lba(4, big-endian)]. A descriptor with track number 0xAA is the
// lead-out and is not emitted as a Track; its LBA becomes Toc.LeadoutLBA.
func parseTOC(data []byte) (*Toc, error) {
	if len(data) < 4 {
		return nil, &ParseError{Msg: "TOC data too short"}
	}

	tocLength := binary.BigEndian.Uint16(data[0:2])
	firstTrack := data[2]
	lastTrack := data[3]

	toc := &Toc{
		FirstTrack: firstTrack,
		LastTrack:  lastTrack,
	}

	offset := 4
	for offset+tocDescriptorSize <= len(data) && offset < int(tocLength)+2 {
		control := data[offset+1]
		trackNum := data[offset+2]
		lba := binary.BigEndian.Uint32(data[offset+4 : offset+8])

		if trackNum == leadoutTrackNumber {
			toc.LeadoutLBA = lba
		} else {
			toc.Tracks = append(toc.Tracks, Track{
				Number:   trackNum,
				StartLBA: lba,
				StartMSF: lbaToMSF(lba),
				IsAudio:  control&0x04 == 0,
			})
		}

		offset += tocDescriptorSize
	}

	return toc, nil
}
