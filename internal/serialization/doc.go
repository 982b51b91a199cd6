// Package serialization stores records as SafeTensors files.
//
// File layout:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON object, tensor name -> {dtype, shape, data_offsets}]
//	[tensor data: raw little-endian bytes, tensors in name order]
//
// The "__metadata__" entry of the header carries the record layout as
// strings: the store key order, the input and target roles, the recorded
// patterns, a record id and a SHA-256 checksum of the data section.
// Transforms are not stored.
//
// Example usage:
//
//	id, err := serialization.WriteRecord("sample.safetensors", rec)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rec, meta, err := serialization.ReadRecord("sample.safetensors")
package serialization
