package multicall

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func AsAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func AsAddresses(value interface{}) ([]common.Address, error) {
	switch v := value.(type) {
	case []common.Address:
		out := make([]common.Address, len(v))
		copy(out, v)
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported address list type %T", value)
	}
}

func AsBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func AsUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case uint16:
		return narrowUint8(uint64(v))
	case uint32:
		return narrowUint8(uint64(v))
	case uint64:
		return narrowUint8(v)
	case *big.Int:
		if !v.IsUint64() || v.Uint64() > 255 {
			return 0, fmt.Errorf("uint8 overflow: %s", v.String())
		}
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func narrowUint8(v uint64) (uint8, error) {
	if v > 255 {
		return 0, fmt.Errorf("uint8 overflow: %d", v)
	}
	return uint8(v), nil
}
