// Copyright 2025 BINARY Members
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import (
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
)

// Profile is the serialized form of a runtime statistics snapshot, dumped
// at shutdown when a stats file is configured.
//
// Attributes:
//   - Algorithm
//   - Threads
type Profile struct {
	Algorithm string         `thrift:"algorithm,1" frugal:"1,default,string" json:"algorithm"`
	Threads   []*ThreadStats `thrift:"threads,2" frugal:"2,default,list<ThreadStats>" json:"threads"`
}

func NewProfile() *Profile {
	return &Profile{}
}

func (p *Profile) GetAlgorithm() string {
	return p.Algorithm
}

func (p *Profile) GetThreads() []*ThreadStats {
	return p.Threads
}

func (p *Profile) Read(iprot thrift.TProtocol) error {
	if _, err := iprot.ReadStructBegin(); err != nil {
		return err
	}
	for {
		_, fieldTypeId, fieldId, err := iprot.ReadFieldBegin()
		if err != nil {
			return err
		}
		if fieldTypeId == thrift.STOP {
			break
		}
		switch {
		case fieldId == 1 && fieldTypeId == thrift.STRING:
			if err := p.readField1(iprot); err != nil {
				return err
			}
		case fieldId == 2 && fieldTypeId == thrift.LIST:
			if err := p.readField2(iprot); err != nil {
				return err
			}
		default:
			if err := iprot.Skip(fieldTypeId); err != nil {
				return err
			}
		}
		if err := iprot.ReadFieldEnd(); err != nil {
			return err
		}
	}
	return iprot.ReadStructEnd()
}

func (p *Profile) readField1(iprot thrift.TProtocol) error {
	v, err := iprot.ReadString()
	if err != nil {
		return err
	}
	p.Algorithm = v
	return nil
}

func (p *Profile) readField2(iprot thrift.TProtocol) error {
	_, size, err := iprot.ReadListBegin()
	if err != nil {
		return err
	}
	p.Threads = make([]*ThreadStats, 0, size)
	for i := 0; i < size; i++ {
		elem := NewThreadStats()
		if err := elem.Read(iprot); err != nil {
			return err
		}
		p.Threads = append(p.Threads, elem)
	}
	return iprot.ReadListEnd()
}

func (p *Profile) Write(oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin("Profile"); err != nil {
		return err
	}
	if err := oprot.WriteFieldBegin("algorithm", thrift.STRING, 1); err != nil {
		return err
	}
	if err := oprot.WriteString(p.Algorithm); err != nil {
		return err
	}
	if err := oprot.WriteFieldEnd(); err != nil {
		return err
	}
	if err := oprot.WriteFieldBegin("threads", thrift.LIST, 2); err != nil {
		return err
	}
	if err := oprot.WriteListBegin(thrift.STRUCT, len(p.Threads)); err != nil {
		return err
	}
	for _, elem := range p.Threads {
		if err := elem.Write(oprot); err != nil {
			return err
		}
	}
	if err := oprot.WriteListEnd(); err != nil {
		return err
	}
	if err := oprot.WriteFieldEnd(); err != nil {
		return err
	}
	if err := oprot.WriteFieldStop(); err != nil {
		return err
	}
	return oprot.WriteStructEnd()
}

func (p *Profile) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Profile(%+v)", *p)
}

// ThreadStats carries one descriptor's commit and abort counters.
//
// Attributes:
//   - ID
//   - CommitsRO
//   - CommitsRW
//   - Aborts
type ThreadStats struct {
	ID        int32 `thrift:"id,1" frugal:"1,default,i32" json:"id"`
	CommitsRO int64 `thrift:"commits_ro,2" frugal:"2,default,i64" json:"commits_ro"`
	CommitsRW int64 `thrift:"commits_rw,3" frugal:"3,default,i64" json:"commits_rw"`
	Aborts    int64 `thrift:"aborts,4" frugal:"4,default,i64" json:"aborts"`
}

func NewThreadStats() *ThreadStats {
	return &ThreadStats{}
}

func (p *ThreadStats) Read(iprot thrift.TProtocol) error {
	if _, err := iprot.ReadStructBegin(); err != nil {
		return err
	}
	for {
		_, fieldTypeId, fieldId, err := iprot.ReadFieldBegin()
		if err != nil {
			return err
		}
		if fieldTypeId == thrift.STOP {
			break
		}
		switch {
		case fieldId == 1 && fieldTypeId == thrift.I32:
			v, err := iprot.ReadI32()
			if err != nil {
				return err
			}
			p.ID = v
		case fieldId == 2 && fieldTypeId == thrift.I64:
			v, err := iprot.ReadI64()
			if err != nil {
				return err
			}
			p.CommitsRO = v
		case fieldId == 3 && fieldTypeId == thrift.I64:
			v, err := iprot.ReadI64()
			if err != nil {
				return err
			}
			p.CommitsRW = v
		case fieldId == 4 && fieldTypeId == thrift.I64:
			v, err := iprot.ReadI64()
			if err != nil {
				return err
			}
			p.Aborts = v
		default:
			if err := iprot.Skip(fieldTypeId); err != nil {
				return err
			}
		}
		if err := iprot.ReadFieldEnd(); err != nil {
			return err
		}
	}
	return iprot.ReadStructEnd()
}

func (p *ThreadStats) Write(oprot thrift.TProtocol) error {
	if err := oprot.WriteStructBegin("ThreadStats"); err != nil {
		return err
	}
	if err := oprot.WriteFieldBegin("id", thrift.I32, 1); err != nil {
		return err
	}
	if err := oprot.WriteI32(p.ID); err != nil {
		return err
	}
	if err := oprot.WriteFieldEnd(); err != nil {
		return err
	}
	if err := oprot.WriteFieldBegin("commits_ro", thrift.I64, 2); err != nil {
		return err
	}
	if err := oprot.WriteI64(p.CommitsRO); err != nil {
		return err
	}
	if err := oprot.WriteFieldEnd(); err != nil {
		return err
	}
	if err := oprot.WriteFieldBegin("commits_rw", thrift.I64, 3); err != nil {
		return err
	}
	if err := oprot.WriteI64(p.CommitsRW); err != nil {
		return err
	}
	if err := oprot.WriteFieldEnd(); err != nil {
		return err
	}
	if err := oprot.WriteFieldBegin("aborts", thrift.I64, 4); err != nil {
		return err
	}
	if err := oprot.WriteI64(p.Aborts); err != nil {
		return err
	}
	if err := oprot.WriteFieldEnd(); err != nil {
		return err
	}
	if err := oprot.WriteFieldStop(); err != nil {
		return err
	}
	return oprot.WriteStructEnd()
}

func (p *ThreadStats) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("ThreadStats(%+v)", *p)
}
